package schemas

import "strings"

// Column types are not spelled out in the FEC spec; they follow from naming
// conventions that held across format versions. Exact names win over suffix
// rules, suffix rules are checked in order.
var columnTypes = map[string]ValueType{
	"election_code":                  Code,
	"election_other_description":     Text,
	"entity_type":                    Code,
	"memo_code":                      Code,
	"report_code":                    Code,
	"category_code":                  Code,
	"ratio_code":                     Code,
	"text_code":                      Code,
	"rec_type":                       Code,
	"reference_code":                 Code,
	"amended_cd":                     Code,
	"support_oppose_code":            Code,
	"secured":                        Code,
	"personal_funds":                 Code,
	"change_of_address":              Code,
	"coordinated_expenditure_yes_no": Code,
	"qualified_committee":            Code,
	"loan_restructured":              Code,
	"others_liable":                  Code,
	"collateral":                     Code,
	"perfected_interest":             Code,
	"future_income":                  Code,
	"loan_amount_original":           Decimal,
	"subtotal":                       Decimal,
	"administrative_ratio":           Decimal,
	"direct_fundraising":             Decimal,
	"direct_candidate_support":       Decimal,
	"other_receipts":                 Decimal,
	"other_disbursements":            Decimal,
}

type suffixRule struct {
	suffix string
	typ    ValueType
}

// Order matters: "_date_terms" is free text describing terms and
// "_payment_to_date" is an amount, so "_terms" and "_to_date" must be
// checked before "_date".
var suffixRules = []suffixRule{
	{"_terms", Text},
	{"_to_date", Decimal},
	{"_date", Date},
	{"_signed", Date},
	{"_amount", Decimal},
	{"_amt", Decimal},
	{"_aggregate", Decimal},
	{"_balance", Decimal},
	{"_rate", Decimal},
	{"_percent", Decimal},
	{"_ytd", Decimal},
	{"_this_period", Decimal},
	{"_this_draw", Decimal},
	{"_value", Decimal},
	{"_expended", Decimal},
	{"_disbursed", Decimal},
	{"_transferred", Decimal},
	{"_year", Integer},
}

var prefixRules = []suffixRule{
	{"col_a_", Decimal},
	{"col_b_", Decimal},
	{"total_", Decimal},
	{"itemized_", Decimal},
	{"unitemized_", Decimal},
	{"voter_registration_", Decimal},
	{"voter_id_", Decimal},
	{"gotv_", Decimal},
	{"generic_campaign_", Decimal},
}

func columnType(name string) ValueType {
	if t, ok := columnTypes[name]; ok {
		return t
	}
	for _, rule := range suffixRules {
		if strings.HasSuffix(name, rule.suffix) {
			return rule.typ
		}
	}
	for _, rule := range prefixRules {
		if strings.HasPrefix(name, rule.suffix) {
			return rule.typ
		}
	}
	return Text
}
