package models

import "strings"

// Universal entity types (15). The vocabulary is closed: every extracted
// entity is mapped into this set, unknown types fall back to CONCEPT.
var UniversalEntityTypes = map[string]bool{
	"PERSON":       true,
	"ORGANIZATION": true,
	"LOCATION":     true,
	"TEMPORAL":     true,
	"QUANTITY":     true,
	"EVENT":        true,
	"DOCUMENT":     true,
	"CONCEPT":      true,
	"TECHNOLOGY":   true,
	"PRODUCT":      true,
	"MODEL":        true,
	"ARCHITECTURE": true,
	"PROCESS":      true,
	"LANGUAGE":     true,
	"REGULATION":   true,
}

// EntityTypeAliases maps common synonyms and NER labels onto universal types.
var EntityTypeAliases = map[string]string{
	// Organizations
	"COMPANY":     "ORGANIZATION",
	"CORPORATION": "ORGANIZATION",
	"INSTITUTION": "ORGANIZATION",
	"UNIVERSITY":  "ORGANIZATION",
	"AGENCY":      "ORGANIZATION",
	"ORG":         "ORGANIZATION",
	"NORP":        "ORGANIZATION",
	// Locations
	"CITY":    "LOCATION",
	"COUNTRY": "LOCATION",
	"PLACE":   "LOCATION",
	"GPE":     "LOCATION",
	"FAC":     "LOCATION",
	"LOC":     "LOCATION",
	// Technology
	"TOOL":      "TECHNOLOGY",
	"SOFTWARE":  "TECHNOLOGY",
	"FRAMEWORK": "TECHNOLOGY",
	"PLATFORM":  "TECHNOLOGY",
	// Documents
	"PAPER":       "DOCUMENT",
	"PUBLICATION": "DOCUMENT",
	"BOOK":        "DOCUMENT",
	// Regulation
	"LAW": "REGULATION",
	// Temporal
	"DATE": "TEMPORAL",
	"TIME": "TEMPORAL",
	"YEAR": "TEMPORAL",
	// Process
	"ALGORITHM": "PROCESS",
	"METHOD":    "PROCESS",
	// Language
	"PROGRAMMING_LANGUAGE": "LANGUAGE",
	// Quantity
	"MONEY":    "QUANTITY",
	"PERCENT":  "QUANTITY",
	"CARDINAL": "QUANTITY",
	"ORDINAL":  "QUANTITY",
	// Concept-adjacent
	"BENCHMARK":   "CONCEPT",
	"DATASET":     "CONCEPT",
	"WORK_OF_ART": "CONCEPT",
	"PER":         "PERSON",
	"PEOPLE":      "PERSON",
}

// Universal relation types (22).
var UniversalRelationTypes = map[string]bool{
	// Structural
	"PART_OF":     true,
	"CONTAINS":    true,
	"INSTANCE_OF": true,
	"TYPE_OF":     true,
	// Organizational
	"EMPLOYS":    true,
	"MANAGES":    true,
	"FOUNDED_BY": true,
	"OWNS":       true,
	"LOCATED_IN": true,
	// Causal
	"CAUSES":   true,
	"ENABLES":  true,
	"REQUIRES": true,
	"LEADS_TO": true,
	// Temporal
	"PRECEDES": true,
	"FOLLOWS":  true,
	// Functional
	"USES":       true,
	"CREATES":    true,
	"IMPLEMENTS": true,
	"DEPENDS_ON": true,
	// Semantic
	"SIMILAR_TO":      true,
	"ASSOCIATED_WITH": true,
	// Fallback
	"RELATED_TO": true,
}

// RelationTypeAliases maps common LLM output types onto universal types.
var RelationTypeAliases = map[string]string{
	"RELATES_TO":       "RELATED_TO",
	"FOUNDED":          "FOUNDED_BY",
	"CREATED_BY":       "CREATES",
	"CREATED":          "CREATES",
	"DEVELOPED":        "CREATES",
	"INVENTED":         "CREATES",
	"BUILT":            "CREATES",
	"WROTE":            "CREATES",
	"DESIGNED":         "CREATES",
	"PRODUCED":         "CREATES",
	"WORKS_AT":         "EMPLOYS",
	"WORKS_FOR":        "EMPLOYS",
	"MEMBER_OF":        "EMPLOYS",
	"BASED_ON":         "DEPENDS_ON",
	"EXTENDS":          "DEPENDS_ON",
	"HEADQUARTERED_IN": "LOCATED_IN",
	"BASED_IN":         "LOCATED_IN",
	"BORN_IN":          "LOCATED_IN",
	"RESULTS_IN":       "CAUSES",
	"TRIGGERS":         "CAUSES",
	"CONTROLS":         "MANAGES",
	"LEADS":            "MANAGES",
	"IS_A":             "INSTANCE_OF",
	"HAS":              "CONTAINS",
	"OWNED_BY":         "OWNS",
	"SYNONYM_OF":       "SIMILAR_TO",
	"COLLABORATES_WITH": "ASSOCIATED_WITH",
}

// Default entity name constraints.
const (
	MinEntityNameLength = 2
	MaxEntityNameLength = 80
	MaxEntityNameWords  = 4
	MaxRelationTypeWords = 3
)

// NormalizeEntityType maps a raw type string into the universal entity set.
// Unknown or empty types fall back to CONCEPT.
func NormalizeEntityType(raw string) string {
	t := strings.ToUpper(strings.TrimSpace(raw))
	if UniversalEntityTypes[t] {
		return t
	}
	if mapped, ok := EntityTypeAliases[t]; ok {
		return mapped
	}
	return "CONCEPT"
}

// NormalizeRelationType maps a raw type string into the universal relation
// set. Unknown or empty types fall back to RELATED_TO.
func NormalizeRelationType(raw string) string {
	t := strings.ToUpper(strings.TrimSpace(raw))
	t = strings.ReplaceAll(t, " ", "_")
	if UniversalRelationTypes[t] {
		return t
	}
	if mapped, ok := RelationTypeAliases[t]; ok {
		return mapped
	}
	return "RELATED_TO"
}

// IsUniversalRelationType reports whether the (upper-cased) type is a member
// of the universal relation set without alias mapping.
func IsUniversalRelationType(raw string) bool {
	return UniversalRelationTypes[strings.ToUpper(strings.TrimSpace(raw))]
}

// TruncateEntityName caps an entity name at maxWords words. LLMs occasionally
// return whole clauses as names; anything past the cap is noise.
func TruncateEntityName(name string, maxWords int) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	words := strings.Fields(name)
	if len(words) <= maxWords {
		return name
	}
	return strings.Join(words[:maxWords], " ")
}
