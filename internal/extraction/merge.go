package extraction

import "contractiq/internal/model"

// mergeResults combines per-chunk extractions into one ContractData.
// Singleton fields keep the first non-empty value in chunk order, list
// fields are concatenated in order, and plain string lists are
// deduplicated. Confidence scores take the maximum seen.
func mergeResults(results []*model.ContractData) *model.ContractData {
	if len(results) == 1 {
		return results[0]
	}

	merged := &model.ContractData{}
	for _, r := range results {
		if r == nil {
			continue
		}
		if merged.ContractTitle == "" {
			merged.ContractTitle = r.ContractTitle
		}
		if merged.ContractType == "" {
			merged.ContractType = r.ContractType
		}
		if merged.Description == "" {
			merged.Description = r.Description
		}
		if merged.ContractDates == nil {
			merged.ContractDates = r.ContractDates
		}
		if merged.Customer == nil {
			merged.Customer = r.Customer
		}
		if merged.Vendor == nil {
			merged.Vendor = r.Vendor
		}
		if merged.RevenueClassification == nil {
			merged.RevenueClassification = r.RevenueClassification
		}
		mergeFinancial(merged, r.FinancialDetails)
		mergePayment(merged, r.PaymentStructure)
		mergeSLA(merged, r.SLA)
		mergeAccount(merged, r.AccountInfo)
	}
	return merged
}

func mergeFinancial(dst *model.ContractData, src *model.FinancialDetails) {
	if src == nil {
		return
	}
	if dst.FinancialDetails == nil {
		dst.FinancialDetails = &model.FinancialDetails{}
	}
	d := dst.FinancialDetails
	d.LineItems = append(d.LineItems, src.LineItems...)
	if d.TotalValue == nil {
		d.TotalValue = src.TotalValue
	}
	if d.Currency == "" {
		d.Currency = src.Currency
	}
	if d.TaxInfo == "" {
		d.TaxInfo = src.TaxInfo
	}
	if d.TaxAmount == nil {
		d.TaxAmount = src.TaxAmount
	}
	if d.Subtotal == nil {
		d.Subtotal = src.Subtotal
	}
	if src.ConfidenceScore > d.ConfidenceScore {
		d.ConfidenceScore = src.ConfidenceScore
	}
}

func mergePayment(dst *model.ContractData, src *model.PaymentStructure) {
	if src == nil {
		return
	}
	if dst.PaymentStructure == nil {
		dst.PaymentStructure = &model.PaymentStructure{}
	}
	d := dst.PaymentStructure
	if d.PaymentTerms == "" {
		d.PaymentTerms = src.PaymentTerms
	}
	d.Schedules = append(d.Schedules, src.Schedules...)
	d.DueDates = appendUnique(d.DueDates, src.DueDates)
	d.Methods = appendUnique(d.Methods, src.Methods)
	if d.BankingDetails == "" {
		d.BankingDetails = src.BankingDetails
	}
	if d.LatePaymentPenalty == "" {
		d.LatePaymentPenalty = src.LatePaymentPenalty
	}
	if src.ConfidenceScore > d.ConfidenceScore {
		d.ConfidenceScore = src.ConfidenceScore
	}
}

func mergeSLA(dst *model.ContractData, src *model.SLA) {
	if src == nil {
		return
	}
	if dst.SLA == nil {
		dst.SLA = &model.SLA{}
	}
	d := dst.SLA
	d.PerformanceMetrics = append(d.PerformanceMetrics, src.PerformanceMetrics...)
	d.PenaltyClauses = appendUnique(d.PenaltyClauses, src.PenaltyClauses)
	if d.SupportTerms == "" {
		d.SupportTerms = src.SupportTerms
	}
	if d.UptimeGuarantee == "" {
		d.UptimeGuarantee = src.UptimeGuarantee
	}
	if d.ResponseTime == "" {
		d.ResponseTime = src.ResponseTime
	}
	if d.ResolutionTime == "" {
		d.ResolutionTime = src.ResolutionTime
	}
	if src.ConfidenceScore > d.ConfidenceScore {
		d.ConfidenceScore = src.ConfidenceScore
	}
}

func mergeAccount(dst *model.ContractData, src *model.AccountInfo) {
	if src == nil {
		return
	}
	if dst.AccountInfo == nil {
		dst.AccountInfo = &model.AccountInfo{}
	}
	d := dst.AccountInfo
	if d.BillingDetails == "" {
		d.BillingDetails = src.BillingDetails
	}
	d.AccountNumbers = appendUnique(d.AccountNumbers, src.AccountNumbers)
	if d.ContactInfo == nil {
		d.ContactInfo = src.ContactInfo
	}
	if d.BillingContact == nil {
		d.BillingContact = src.BillingContact
	}
	if d.TechnicalContact == nil {
		d.TechnicalContact = src.TechnicalContact
	}
	if src.ConfidenceScore > d.ConfidenceScore {
		d.ConfidenceScore = src.ConfidenceScore
	}
}

func appendUnique(dst, src []string) []string {
	for _, v := range src {
		found := false
		for _, existing := range dst {
			if existing == v {
				found = true
				break
			}
		}
		if !found {
			dst = append(dst, v)
		}
	}
	return dst
}
