package extraction

import "fmt"

const promptTemplate = `You are a contract analysis expert. Extract structured information from the following contract document.

Contract Text:
%s

Please extract and return a JSON object with the following structure. If information is not found, use null for that field. Include confidence scores (0.0 to 1.0) for major sections.

{
  "contract_title": "string or null",
  "contract_type": "string or null (e.g., 'Service Agreement', 'Purchase Order', 'SaaS Contract')",
  "description": "brief description or null",

  "contract_dates": {
    "effective_date": "YYYY-MM-DD or null",
    "expiration_date": "YYYY-MM-DD or null",
    "signature_date": "YYYY-MM-DD or null"
  },

  "customer": {
    "name": "string or null",
    "legal_entity": "string or null",
    "registration_details": "string or null",
    "address": "string or null",
    "signatories": [
      {"name": "string", "role": "string", "title": "string"}
    ],
    "confidence_score": 0.0-1.0
  },

  "vendor": {
    "name": "string or null",
    "legal_entity": "string or null",
    "registration_details": "string or null",
    "address": "string or null",
    "signatories": [
      {"name": "string", "role": "string", "title": "string"}
    ],
    "confidence_score": 0.0-1.0
  },

  "account_info": {
    "billing_details": "string or null",
    "account_numbers": ["string"],
    "contact_info": {
      "email": "string or null",
      "phone": "string or null",
      "address": "string or null"
    },
    "billing_contact": {
      "email": "string or null",
      "phone": "string or null"
    },
    "technical_contact": {
      "email": "string or null",
      "phone": "string or null"
    },
    "confidence_score": 0.0-1.0
  },

  "financial_details": {
    "line_items": [
      {
        "description": "string",
        "quantity": number or null,
        "unit_price": number or null,
        "total_price": number or null,
        "unit": "string or null"
      }
    ],
    "total_value": number or null,
    "currency": "string (e.g., 'USD', 'EUR')",
    "tax_info": "string or null",
    "tax_amount": number or null,
    "subtotal": number or null,
    "confidence_score": 0.0-1.0
  },

  "payment_structure": {
    "payment_terms": "string (e.g., 'Net 30', 'Net 60', 'Due on receipt')",
    "schedules": [
      {
        "due_date": "YYYY-MM-DD or string",
        "amount": number,
        "description": "string"
      }
    ],
    "due_dates": ["YYYY-MM-DD or string"],
    "methods": ["string (e.g., 'Wire Transfer', 'Check', 'Credit Card')"],
    "banking_details": "string or null",
    "late_payment_penalty": "string or null",
    "confidence_score": 0.0-1.0
  },

  "revenue_classification": {
    "recurring_payment": boolean,
    "one_time_payment": boolean,
    "subscription_model": "string or null (e.g., 'monthly', 'annual')",
    "billing_cycle": "string or null",
    "renewal_terms": "string or null",
    "auto_renewal": boolean,
    "renewal_notice_period": "string or null",
    "confidence_score": 0.0-1.0
  },

  "sla": {
    "performance_metrics": [
      {
        "name": "string",
        "target": "string",
        "measurement": "string"
      }
    ],
    "penalty_clauses": ["string"],
    "support_terms": "string or null",
    "uptime_guarantee": "string or null",
    "response_time": "string or null",
    "resolution_time": "string or null",
    "confidence_score": 0.0-1.0
  }
}

Return ONLY the JSON object, no additional text or explanation.`

func buildExtractionPrompt(text string) string {
	return fmt.Sprintf(promptTemplate, text)
}
