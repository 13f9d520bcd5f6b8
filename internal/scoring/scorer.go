package scoring

import (
	"math"

	"contractiq/internal/model"
)

// Category point ceilings. The five categories add up to 100.
const (
	MaxFinancial = 30.0
	MaxParty     = 25.0
	MaxPayment   = 20.0
	MaxSLA       = 15.0
	MaxContact   = 10.0
)

// Result is the outcome of scoring one contract.
type Result struct {
	Total         float64
	Breakdown     model.ScoreBreakdown
	MissingFields []string
}

// Score computes the completeness score for extracted contract data.
// It is a pure function of its input so scoring the same data always
// yields the same result.
func Score(data *model.ContractData) Result {
	if data == nil {
		data = &model.ContractData{}
	}

	// Each category is rounded to one decimal and the total is the sum
	// of the rounded values, so the breakdown always adds up to the score.
	breakdown := model.ScoreBreakdown{
		FinancialCompleteness: round1(scoreFinancial(data.FinancialDetails)),
		PartyIdentification:   round1(scoreParties(data.Customer, data.Vendor)),
		PaymentTerms:          round1(scorePayment(data.PaymentStructure)),
		SLADefinition:         round1(scoreSLA(data.SLA)),
		ContactInformation:    round1(scoreContact(data.AccountInfo)),
	}

	total := breakdown.FinancialCompleteness +
		breakdown.PartyIdentification +
		breakdown.PaymentTerms +
		breakdown.SLADefinition +
		breakdown.ContactInformation

	return Result{
		Total:         round1(total),
		Breakdown:     breakdown,
		MissingFields: missingFields(data),
	}
}

// scoreFinancial awards up to 15 points for line item detail (averaged
// over the items so padding with empty items does not help), 10 for a
// total value, 3 for currency and 2 for tax information.
func scoreFinancial(f *model.FinancialDetails) float64 {
	if f == nil {
		return 0
	}

	score := 0.0
	if len(f.LineItems) > 0 {
		itemScore := 0.0
		for _, item := range f.LineItems {
			if item.Description != "" {
				itemScore += 5
			}
			if item.Quantity != nil && item.UnitPrice != nil {
				itemScore += 5
			}
			if item.TotalPrice != nil {
				itemScore += 5
			}
		}
		score += math.Min(itemScore/float64(len(f.LineItems)), 15)
	}
	if f.TotalValue != nil {
		score += 10
	}
	if f.Currency != "" {
		score += 3
	}
	if f.TaxInfo != "" || f.TaxAmount != nil {
		score += 2
	}
	return math.Min(score, MaxFinancial)
}

// scoreParties awards up to 12.5 points per side for name, legal
// entity, address and signatories.
func scoreParties(customer, vendor *model.PartyInfo) float64 {
	score := scoreParty(customer) + scoreParty(vendor)
	return math.Min(score, MaxParty)
}

func scoreParty(p *model.PartyInfo) float64 {
	if p == nil {
		return 0
	}
	score := 0.0
	if p.Name != "" {
		score += 4
	}
	if p.LegalEntity != "" {
		score += 3
	}
	if p.Address != "" {
		score += 2.5
	}
	if len(p.Signatories) > 0 {
		score += 3
	}
	return score
}

// scorePayment awards 8 points for payment terms, up to 7 for the
// schedule (2 per scheduled payment, or 5 flat when only due dates are
// listed), 3 for methods and 2 for banking details.
func scorePayment(p *model.PaymentStructure) float64 {
	if p == nil {
		return 0
	}

	score := 0.0
	if p.PaymentTerms != "" {
		score += 8
	}
	if len(p.Schedules) > 0 {
		score += math.Min(float64(len(p.Schedules))*2, 7)
	} else if len(p.DueDates) > 0 {
		score += 5
	}
	if len(p.Methods) > 0 {
		score += 3
	}
	if p.BankingDetails != "" {
		score += 2
	}
	return math.Min(score, MaxPayment)
}

// scoreSLA awards up to 6 points for performance metrics (2 each), 4
// for support terms, 3 for penalty clauses and 2 when either a
// response or resolution time is stated.
func scoreSLA(s *model.SLA) float64 {
	if s == nil {
		return 0
	}

	score := 0.0
	if len(s.PerformanceMetrics) > 0 {
		score += math.Min(float64(len(s.PerformanceMetrics))*2, 6)
	}
	if s.SupportTerms != "" {
		score += 4
	}
	if len(s.PenaltyClauses) > 0 {
		score += 3
	}
	if s.ResponseTime != "" || s.ResolutionTime != "" {
		score += 2
	}
	return math.Min(score, MaxSLA)
}

// scoreContact awards 2 points per billing contact channel and 1.5 per
// technical and general contact channel.
func scoreContact(a *model.AccountInfo) float64 {
	if a == nil {
		return 0
	}

	score := 0.0
	if a.BillingContact != nil {
		if a.BillingContact.Email != "" {
			score += 2
		}
		if a.BillingContact.Phone != "" {
			score += 2
		}
	}
	if a.TechnicalContact != nil {
		if a.TechnicalContact.Email != "" {
			score += 1.5
		}
		if a.TechnicalContact.Phone != "" {
			score += 1.5
		}
	}
	if a.ContactInfo != nil {
		if a.ContactInfo.Email != "" {
			score += 1.5
		}
		if a.ContactInfo.Phone != "" {
			score += 1.5
		}
	}
	return math.Min(score, MaxContact)
}

// missingFields lists the critical gaps in a fixed category order:
// financial, parties, payment, SLA, contact.
func missingFields(data *model.ContractData) []string {
	var missing []string

	if f := data.FinancialDetails; f == nil {
		missing = append(missing, "Financial details section")
	} else {
		if f.TotalValue == nil || *f.TotalValue == 0 {
			missing = append(missing, "Total contract value")
		}
		if f.Currency == "" {
			missing = append(missing, "Currency")
		}
		if len(f.LineItems) == 0 {
			missing = append(missing, "Line items/services description")
		}
	}

	if data.Customer == nil || data.Customer.Name == "" {
		missing = append(missing, "Customer name")
	}
	if data.Vendor == nil || data.Vendor.Name == "" {
		missing = append(missing, "Vendor name")
	}

	if p := data.PaymentStructure; p == nil {
		missing = append(missing, "Payment structure section")
	} else {
		if p.PaymentTerms == "" {
			missing = append(missing, "Payment terms (e.g., Net 30)")
		}
		if len(p.Schedules) == 0 && len(p.DueDates) == 0 {
			missing = append(missing, "Payment schedule or due dates")
		}
	}

	if data.SLA == nil {
		missing = append(missing, "Service Level Agreement (SLA)")
	}

	if a := data.AccountInfo; a == nil {
		missing = append(missing, "Account/contact information")
	} else if a.BillingContact == nil {
		missing = append(missing, "Billing contact information")
	}

	return missing
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
