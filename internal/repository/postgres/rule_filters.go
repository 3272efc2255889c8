package postgres

import (
	"fmt"
	"strings"

	"github.com/hongquyngo/safety-stock/internal/domain"
)

// buildRuleFilterClause constructs the WHERE conditions for rule listings
func buildRuleFilterClause(filter domain.RuleFilter, alias string, startIndex int) (string, []interface{}) {
	a := normalizeAlias(alias)
	clauses := []string{a + "delete_flag = FALSE"}
	var args []interface{}
	idx := startIndex

	status := filter.NormalizedStatus()
	if !filter.IncludeInactive && status != "all" {
		clauses = append(clauses, a+"is_active = TRUE")
	}

	if filter.EntityID != nil {
		clauses = append(clauses, fmt.Sprintf("%sentity_id = $%d", a, idx))
		args = append(args, *filter.EntityID)
		idx++
	}

	switch {
	case filter.GeneralOnly:
		clauses = append(clauses, a+"customer_id IS NULL")
	case filter.CustomerID != nil:
		clauses = append(clauses, fmt.Sprintf("%scustomer_id = $%d", a, idx))
		args = append(args, *filter.CustomerID)
		idx++
	}

	if search := strings.TrimSpace(filter.ProductSearch); search != "" {
		clauses = append(clauses, fmt.Sprintf("(p.pt_code ILIKE $%d OR p.name ILIKE $%d)", idx, idx))
		args = append(args, "%"+search+"%")
	}

	switch status {
	case "active":
		clauses = append(clauses,
			"CURRENT_DATE >= "+a+"effective_from",
			"("+a+"effective_to IS NULL OR CURRENT_DATE <= "+a+"effective_to)")
	case "expired":
		clauses = append(clauses, a+"effective_to IS NOT NULL AND CURRENT_DATE > "+a+"effective_to")
	case "future":
		clauses = append(clauses, "CURRENT_DATE < "+a+"effective_from")
	}

	return strings.Join(clauses, " AND "), args
}

func normalizeAlias(alias string) string {
	if alias == "" {
		return ""
	}
	if !strings.HasSuffix(alias, ".") {
		return alias + "."
	}
	return alias
}

func buildRuleStatusCase(alias string) string {
	return fmt.Sprintf(`CASE
	        WHEN CURRENT_DATE >= %[1]seffective_from
	            AND (%[1]seffective_to IS NULL OR CURRENT_DATE <= %[1]seffective_to)
	            AND %[1]sis_active THEN '%[2]s'
	        WHEN CURRENT_DATE < %[1]seffective_from THEN '%[3]s'
	        WHEN %[1]seffective_to IS NOT NULL AND CURRENT_DATE > %[1]seffective_to THEN '%[4]s'
	        ELSE '%[5]s'
	    END`, normalizeAlias(alias),
		domain.RuleStatusActive, domain.RuleStatusFuture, domain.RuleStatusExpired, domain.RuleStatusInactive)
}

func buildRuleTypeCase(alias string) string {
	return fmt.Sprintf(`CASE
	        WHEN %[1]scustomer_id IS NOT NULL THEN '%[2]s'
	        ELSE '%[3]s'
	    END`, normalizeAlias(alias), domain.RuleTypeCustomer, domain.RuleTypeGeneral)
}
