package repository

import (
	"strings"
)

// Field is a canonical column name.
type Field string

// Canonical columns of a snapshot file.
const (
	FieldMember Field = "member"
	FieldGroup  Field = "group"
	FieldRegion Field = "region"
	FieldMerit  Field = "merit"
	FieldPower  Field = "power"
	FieldRank   Field = "rank"
)

// requiredFields must be present in every accepted file.
var requiredFields = []Field{FieldMember, FieldGroup, FieldMerit, FieldPower}

// columnAliases maps observed header names to canonical fields. ASCII names
// are matched lowercased.
var columnAliases = map[string]Field{
	// Member
	"成員":        FieldMember,
	"成员":        FieldMember,
	"玩家":        FieldMember,
	"名稱":        FieldMember,
	"名称":        FieldMember,
	"角色名":       FieldMember,
	"member":    FieldMember,
	"member_id": FieldMember,
	"name":      FieldMember,
	"player":    FieldMember,

	// Group
	"分組":    FieldGroup,
	"分组":    FieldGroup,
	"組別":    FieldGroup,
	"组别":    FieldGroup,
	"group": FieldGroup,
	"team":  FieldGroup,

	// Region
	"所屬勢力":    FieldRegion,
	"所属势力":    FieldRegion,
	"勢力":      FieldRegion,
	"势力":      FieldRegion,
	"地區":      FieldRegion,
	"地区":      FieldRegion,
	"region":  FieldRegion,
	"faction": FieldRegion,

	// Merit
	"戰功總量":        FieldMerit,
	"战功总量":        FieldMerit,
	"戰功":          FieldMerit,
	"战功":          FieldMerit,
	"merit":       FieldMerit,
	"merit_total": FieldMerit,

	// Power
	"勢力值":   FieldPower,
	"势力值":   FieldPower,
	"戰力":    FieldPower,
	"战力":    FieldPower,
	"power": FieldPower,

	// Rank
	"貢獻排行": FieldRank,
	"贡献排行": FieldRank,
	"排行":   FieldRank,
	"排名":   FieldRank,
	"rank": FieldRank,
}

// columnMapping resolves canonical fields to column indices of one header.
type columnMapping struct {
	index   map[Field]int
	present []string // cleaned header names in file order
}

// cleanHeader strips whitespace, quotes and a stray byte order mark.
func cleanHeader(h string) string {
	h = strings.TrimSpace(h)
	h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	return strings.Trim(h, "\"'")
}

// mapColumns applies the alias table to a header row. The first column that
// maps to a field wins.
func mapColumns(header []string) columnMapping {
	m := columnMapping{
		index:   make(map[Field]int, len(header)),
		present: make([]string, 0, len(header)),
	}
	for i, raw := range header {
		h := cleanHeader(raw)
		m.present = append(m.present, h)
		f, ok := columnAliases[h]
		if !ok {
			f, ok = columnAliases[strings.ToLower(h)]
		}
		if !ok {
			continue
		}
		if _, dup := m.index[f]; !dup {
			m.index[f] = i
		}
	}
	return m
}

// missing lists the required fields the header does not provide.
func (m columnMapping) missing() []string {
	var out []string
	for _, f := range requiredFields {
		if _, ok := m.index[f]; !ok {
			out = append(out, string(f))
		}
	}
	return out
}

// value returns the cell of field f, or "" when the column or cell is absent.
func (m columnMapping) value(rec []string, f Field) string {
	i, ok := m.index[f]
	if !ok || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}
