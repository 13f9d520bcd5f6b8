package model

// Signatory is an authorized signatory listed on the contract
type Signatory struct {
	Name  string `bson:"name,omitempty" json:"name,omitempty"`
	Role  string `bson:"role,omitempty" json:"role,omitempty"`
	Title string `bson:"title,omitempty" json:"title,omitempty"`
}

// PartyInfo identifies one side of the contract
type PartyInfo struct {
	Name                string      `bson:"name,omitempty" json:"name,omitempty"`
	LegalEntity         string      `bson:"legal_entity,omitempty" json:"legal_entity,omitempty"`
	RegistrationDetails string      `bson:"registration_details,omitempty" json:"registration_details,omitempty"`
	Address             string      `bson:"address,omitempty" json:"address,omitempty"`
	Signatories         []Signatory `bson:"signatories,omitempty" json:"signatories,omitempty"`
	ConfidenceScore     float64     `bson:"confidence_score,omitempty" json:"confidence_score,omitempty"`
}

// ContactInfo holds a single point of contact
type ContactInfo struct {
	Email      string `bson:"email,omitempty" json:"email,omitempty"`
	Phone      string `bson:"phone,omitempty" json:"phone,omitempty"`
	Address    string `bson:"address,omitempty" json:"address,omitempty"`
	Department string `bson:"department,omitempty" json:"department,omitempty"`
}

// AccountInfo holds account and billing contact information
type AccountInfo struct {
	BillingDetails   string       `bson:"billing_details,omitempty" json:"billing_details,omitempty"`
	AccountNumbers   []string     `bson:"account_numbers,omitempty" json:"account_numbers,omitempty"`
	ContactInfo      *ContactInfo `bson:"contact_info,omitempty" json:"contact_info,omitempty"`
	BillingContact   *ContactInfo `bson:"billing_contact,omitempty" json:"billing_contact,omitempty"`
	TechnicalContact *ContactInfo `bson:"technical_contact,omitempty" json:"technical_contact,omitempty"`
	ConfidenceScore  float64      `bson:"confidence_score,omitempty" json:"confidence_score,omitempty"`
}

// LineItem is a single billed item or service in the contract
type LineItem struct {
	Description string   `bson:"description,omitempty" json:"description,omitempty"`
	Quantity    *float64 `bson:"quantity,omitempty" json:"quantity,omitempty"`
	UnitPrice   *float64 `bson:"unit_price,omitempty" json:"unit_price,omitempty"`
	TotalPrice  *float64 `bson:"total_price,omitempty" json:"total_price,omitempty"`
	Unit        string   `bson:"unit,omitempty" json:"unit,omitempty"`
}

// FinancialDetails holds the contract's financial terms
type FinancialDetails struct {
	LineItems       []LineItem `bson:"line_items,omitempty" json:"line_items,omitempty"`
	TotalValue      *float64   `bson:"total_value,omitempty" json:"total_value,omitempty"`
	Currency        string     `bson:"currency,omitempty" json:"currency,omitempty"`
	TaxInfo         string     `bson:"tax_info,omitempty" json:"tax_info,omitempty"`
	TaxAmount       *float64   `bson:"tax_amount,omitempty" json:"tax_amount,omitempty"`
	Subtotal        *float64   `bson:"subtotal,omitempty" json:"subtotal,omitempty"`
	ConfidenceScore float64    `bson:"confidence_score,omitempty" json:"confidence_score,omitempty"`
}

// PaymentSchedule is one scheduled payment
type PaymentSchedule struct {
	DueDate     string   `bson:"due_date,omitempty" json:"due_date,omitempty"`
	Amount      *float64 `bson:"amount,omitempty" json:"amount,omitempty"`
	Description string   `bson:"description,omitempty" json:"description,omitempty"`
}

// PaymentStructure holds payment terms and structure
type PaymentStructure struct {
	PaymentTerms       string            `bson:"payment_terms,omitempty" json:"payment_terms,omitempty"`
	Schedules          []PaymentSchedule `bson:"schedules,omitempty" json:"schedules,omitempty"`
	DueDates           []string          `bson:"due_dates,omitempty" json:"due_dates,omitempty"`
	Methods            []string          `bson:"methods,omitempty" json:"methods,omitempty"`
	BankingDetails     string            `bson:"banking_details,omitempty" json:"banking_details,omitempty"`
	LatePaymentPenalty string            `bson:"late_payment_penalty,omitempty" json:"late_payment_penalty,omitempty"`
	ConfidenceScore    float64           `bson:"confidence_score,omitempty" json:"confidence_score,omitempty"`
}

// RevenueClassification describes how the contract's revenue recurs
type RevenueClassification struct {
	RecurringPayment    bool    `bson:"recurring_payment" json:"recurring_payment"`
	OneTimePayment      bool    `bson:"one_time_payment" json:"one_time_payment"`
	SubscriptionModel   string  `bson:"subscription_model,omitempty" json:"subscription_model,omitempty"`
	BillingCycle        string  `bson:"billing_cycle,omitempty" json:"billing_cycle,omitempty"`
	RenewalTerms        string  `bson:"renewal_terms,omitempty" json:"renewal_terms,omitempty"`
	AutoRenewal         bool    `bson:"auto_renewal" json:"auto_renewal"`
	RenewalNoticePeriod string  `bson:"renewal_notice_period,omitempty" json:"renewal_notice_period,omitempty"`
	ConfidenceScore     float64 `bson:"confidence_score,omitempty" json:"confidence_score,omitempty"`
}

// PerformanceMetric is one SLA performance target
type PerformanceMetric struct {
	Name        string `bson:"name,omitempty" json:"name,omitempty"`
	Target      string `bson:"target,omitempty" json:"target,omitempty"`
	Measurement string `bson:"measurement,omitempty" json:"measurement,omitempty"`
}

// SLA holds service level agreement terms
type SLA struct {
	PerformanceMetrics []PerformanceMetric `bson:"performance_metrics,omitempty" json:"performance_metrics,omitempty"`
	PenaltyClauses     []string            `bson:"penalty_clauses,omitempty" json:"penalty_clauses,omitempty"`
	SupportTerms       string              `bson:"support_terms,omitempty" json:"support_terms,omitempty"`
	UptimeGuarantee    string              `bson:"uptime_guarantee,omitempty" json:"uptime_guarantee,omitempty"`
	ResponseTime       string              `bson:"response_time,omitempty" json:"response_time,omitempty"`
	ResolutionTime     string              `bson:"resolution_time,omitempty" json:"resolution_time,omitempty"`
	ConfidenceScore    float64             `bson:"confidence_score,omitempty" json:"confidence_score,omitempty"`
}

// ContractDates holds the key dates of the contract
type ContractDates struct {
	EffectiveDate  string `bson:"effective_date,omitempty" json:"effective_date,omitempty"`
	ExpirationDate string `bson:"expiration_date,omitempty" json:"expiration_date,omitempty"`
	SignatureDate  string `bson:"signature_date,omitempty" json:"signature_date,omitempty"`
}

// ContractData is the structured extraction result for one contract
type ContractData struct {
	ContractTitle string         `bson:"contract_title,omitempty" json:"contract_title,omitempty"`
	ContractType  string         `bson:"contract_type,omitempty" json:"contract_type,omitempty"`
	Description   string         `bson:"description,omitempty" json:"description,omitempty"`
	ContractDates *ContractDates `bson:"contract_dates,omitempty" json:"contract_dates,omitempty"`

	Customer *PartyInfo `bson:"customer,omitempty" json:"customer,omitempty"`
	Vendor   *PartyInfo `bson:"vendor,omitempty" json:"vendor,omitempty"`

	AccountInfo           *AccountInfo           `bson:"account_info,omitempty" json:"account_info,omitempty"`
	FinancialDetails      *FinancialDetails      `bson:"financial_details,omitempty" json:"financial_details,omitempty"`
	PaymentStructure      *PaymentStructure      `bson:"payment_structure,omitempty" json:"payment_structure,omitempty"`
	RevenueClassification *RevenueClassification `bson:"revenue_classification,omitempty" json:"revenue_classification,omitempty"`
	SLA                   *SLA                   `bson:"sla,omitempty" json:"sla,omitempty"`
}

// ScoreBreakdown carries the per-category completeness scores.
// Each category is clamped to its ceiling; together they sum to the total.
type ScoreBreakdown struct {
	FinancialCompleteness float64 `bson:"financial_completeness" json:"financial_completeness"` // max 30
	PartyIdentification   float64 `bson:"party_identification" json:"party_identification"`     // max 25
	PaymentTerms          float64 `bson:"payment_terms" json:"payment_terms"`                   // max 20
	SLADefinition         float64 `bson:"sla_definition" json:"sla_definition"`                 // max 15
	ContactInformation    float64 `bson:"contact_information" json:"contact_information"`       // max 10
}
