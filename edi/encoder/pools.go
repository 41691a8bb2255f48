package encoder

import "github.com/claimstream/edi-fixtures/edi/models"

// HealthPlans is the fixed plan catalog members enroll against. The decode
// side uses the same catalog to resolve plan ids back to plan records.
var HealthPlans = []models.HealthPlan{
	{ID: "DH-P3678B", Name: "Gold Plan", Type: "PPO", Premium: 500.00, Deductible: 2000.00, Coinsurance: 20, OOPMax: 6000.00},
	{ID: "DH-P3156C", Name: "Silver Plan", Type: "HMO", Premium: 350.00, Deductible: 4000.00, Coinsurance: 30, OOPMax: 8000.00},
	{ID: "DH-P8768B", Name: "Bronze Plan", Type: "HDHP", Premium: 250.00, Deductible: 6000.00, Coinsurance: 40, OOPMax: 10000.00},
	{ID: "DH-P3091B", Name: "Platinum Plan", Type: "EPO", Premium: 600.00, Deductible: 1000.00, Coinsurance: 10, OOPMax: 4000.00},
	{ID: "DH-P3109C", Name: "Catastrophic Plan", Type: "HDHP", Premium: 200.00, Deductible: 8000.00, Coinsurance: 50, OOPMax: 12000.00},
}

// HealthPlanByID resolves a plan from the catalog.
func HealthPlanByID(id string) (models.HealthPlan, bool) {
	for _, p := range HealthPlans {
		if p.ID == id {
			return p, true
		}
	}
	return models.HealthPlan{}, false
}

type codedDiagnosis struct {
	code        string
	description string
}

// Diagnosis pools by category. The first diagnosis selected for a claim is
// primary, the remainder secondary.
var diagnosisPools = map[string][]codedDiagnosis{
	"chronic": {
		{"E11.65", "Type 2 diabetes mellitus with hyperglycemia"},
		{"I10", "Essential (primary) hypertension"},
		{"E78.5", "Hyperlipidemia"},
		{"J44.1", "COPD with exacerbation"},
		{"M54.5", "Low back pain"},
		{"E11.9", "Type 2 diabetes without complications"},
		{"I25.10", "Atherosclerotic heart disease"},
		{"N18.6", "End stage renal disease"},
		{"F32.9", "Major depressive disorder"},
	},
	"acute": {
		{"J18.9", "Pneumonia, unspecified"},
		{"K59.00", "Constipation"},
		{"R50.9", "Fever"},
		{"R06.02", "Shortness of breath"},
		{"R51", "Headache"},
		{"N39.0", "Urinary tract infection"},
		{"K21.9", "GERD"},
	},
	"preventive": {
		{"Z00.00", "Encounter for general exam"},
		{"Z00.121", "Encounter for routine child health check"},
		{"Z13.9", "Screening for unspecified disorder"},
		{"Z79.899", "Other long term drug therapy"},
	},
}

var diagnosisCategories = []string{"chronic", "acute", "preventive"}

// Procedure pools by service-line complexity.
var procedurePools = map[string][]string{
	"high_complexity":   {"99285", "99255", "99245", "36415", "93000", "80053"},
	"medium_complexity": {"99214", "99213", "99203", "99204"},
	"low_complexity":    {"99212", "99211", "99395", "99396"},
}

// Emergency visit levels, drawn when the claim is flagged ER.
var erProcedureCodes = []string{"99281", "99282", "99283", "99284", "99285"}

// Place-of-service codes by provider type.
var placeOfService = map[string][]string{
	"emergency":  {"23"},
	"specialist": {"11", "22"},
	"primary":    {"11", "12"},
}

var providerTaxonomies = []string{"207Q00000X", "207R00000X", "208D00000X"}

var providerSpecialties = []string{"Cardiology", "Pediatrics", "Internal Medicine", "Family Practice"}

var serviceLineModifiers = []string{"", "25", "59", "76"}
