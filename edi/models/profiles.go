package models

// VolumeProfile describes how many entities a generation run produces when no
// explicit count is supplied. Draws outside [Min,Max] are clamped.
type VolumeProfile struct {
	Min          int
	Max          int
	Distribution string // uniform, poisson or lognormal
	Lambda       float64
	Mean         float64
	Sigma        float64
}

// PaymentRatio is the paid/denied/pending split applied when sizing an 835
// run off an existing claim population.
type PaymentRatio struct {
	Paid    float64
	Denied  float64
	Pending float64
}

// BusinessSizeProfile bundles the volume distributions for a named business
// size.
type BusinessSizeProfile struct {
	Enrollment   VolumeProfile
	Claims       VolumeProfile
	PaymentRatio PaymentRatio
}

var businessSizes = map[string]BusinessSizeProfile{
	"small": {
		Enrollment:   VolumeProfile{Min: 50, Max: 200, Distribution: "uniform"},
		Claims:       VolumeProfile{Min: 10, Max: 50, Distribution: "poisson", Lambda: 30},
		PaymentRatio: PaymentRatio{Paid: 0.6, Denied: 0.2, Pending: 0.2},
	},
	"medium": {
		Enrollment:   VolumeProfile{Min: 500, Max: 3000, Distribution: "lognormal", Mean: 6.5, Sigma: 0.5},
		Claims:       VolumeProfile{Min: 100, Max: 1000, Distribution: "lognormal", Mean: 5.5, Sigma: 0.6},
		PaymentRatio: PaymentRatio{Paid: 0.6, Denied: 0.2, Pending: 0.2},
	},
	"large": {
		Enrollment:   VolumeProfile{Min: 10000, Max: 50000, Distribution: "lognormal", Mean: 10.0, Sigma: 0.4},
		Claims:       VolumeProfile{Min: 2000, Max: 10000, Distribution: "lognormal", Mean: 8.0, Sigma: 0.5},
		PaymentRatio: PaymentRatio{Paid: 0.6, Denied: 0.2, Pending: 0.2},
	},
}

// BusinessSize returns the named volume profile, defaulting to medium for
// unknown names.
func BusinessSize(name string) BusinessSizeProfile {
	if p, ok := businessSizes[name]; ok {
		return p
	}
	return businessSizes["medium"]
}

type DiagnosisWeights struct {
	Chronic    float64
	Acute      float64
	Preventive float64
}

type ProviderTypeWeights struct {
	Emergency  float64
	Specialist float64
	Primary    float64
}

type ChargeRange struct {
	Min float64
	Max float64
}

// RiskProfile is a named bundle of rates shaping generated claim cost,
// diagnosis mix and denial behavior.
type RiskProfile struct {
	Name                  string
	ChronicDiseaseRate    float64
	MultipleDiagnosisRate float64
	ERVisitRate           float64
	HighCostRatio         float64
	DenialRate            float64
	ServiceLineComplexity string // high, medium or low
	ChargeRange           ChargeRange
	DiagnosisWeights      DiagnosisWeights
	ProviderTypeWeights   ProviderTypeWeights
}

// RiskOverride is a partial profile. Non-nil fields replace the corresponding
// field of the base profile.
type RiskOverride struct {
	ChronicDiseaseRate    *float64
	MultipleDiagnosisRate *float64
	ERVisitRate           *float64
	HighCostRatio         *float64
	DenialRate            *float64
	ServiceLineComplexity *string
	ChargeRange           *ChargeRange
	DiagnosisWeights      *DiagnosisWeights
	ProviderTypeWeights   *ProviderTypeWeights
}

var riskProfiles = map[string]RiskProfile{
	"high_risk": {
		Name:                  "high_risk",
		ChronicDiseaseRate:    0.7,
		MultipleDiagnosisRate: 0.6,
		ERVisitRate:           0.3,
		HighCostRatio:         0.5,
		DenialRate:            0.25,
		ServiceLineComplexity: "high",
		ChargeRange:           ChargeRange{Min: 500, Max: 15000},
		DiagnosisWeights:      DiagnosisWeights{Chronic: 0.7, Acute: 0.2, Preventive: 0.1},
		ProviderTypeWeights:   ProviderTypeWeights{Emergency: 0.3, Specialist: 0.4, Primary: 0.3},
	},
	"low_risk": {
		Name:                  "low_risk",
		ChronicDiseaseRate:    0.1,
		MultipleDiagnosisRate: 0.2,
		ERVisitRate:           0.02,
		HighCostRatio:         0.1,
		DenialRate:            0.05,
		ServiceLineComplexity: "low",
		ChargeRange:           ChargeRange{Min: 50, Max: 500},
		DiagnosisWeights:      DiagnosisWeights{Chronic: 0.1, Acute: 0.3, Preventive: 0.6},
		ProviderTypeWeights:   ProviderTypeWeights{Emergency: 0.02, Specialist: 0.2, Primary: 0.78},
	},
	"balanced": {
		Name:                  "balanced",
		ChronicDiseaseRate:    0.3,
		MultipleDiagnosisRate: 0.4,
		ERVisitRate:           0.1,
		HighCostRatio:         0.25,
		DenialRate:            0.15,
		ServiceLineComplexity: "medium",
		ChargeRange:           ChargeRange{Min: 100, Max: 5000},
		DiagnosisWeights:      DiagnosisWeights{Chronic: 0.3, Acute: 0.4, Preventive: 0.3},
		ProviderTypeWeights:   ProviderTypeWeights{Emergency: 0.1, Specialist: 0.3, Primary: 0.6},
	},
}

// Risk returns the named risk profile, defaulting to balanced for unknown
// names.
func Risk(name string) RiskProfile {
	if p, ok := riskProfiles[name]; ok {
		return p
	}
	return riskProfiles["balanced"]
}

// Merge applies a partial override onto the profile field-by-field and
// returns the result. A nil override returns the profile unchanged.
func (p RiskProfile) Merge(o *RiskOverride) RiskProfile {
	if o == nil {
		return p
	}
	if o.ChronicDiseaseRate != nil {
		p.ChronicDiseaseRate = *o.ChronicDiseaseRate
	}
	if o.MultipleDiagnosisRate != nil {
		p.MultipleDiagnosisRate = *o.MultipleDiagnosisRate
	}
	if o.ERVisitRate != nil {
		p.ERVisitRate = *o.ERVisitRate
	}
	if o.HighCostRatio != nil {
		p.HighCostRatio = *o.HighCostRatio
	}
	if o.DenialRate != nil {
		p.DenialRate = *o.DenialRate
	}
	if o.ServiceLineComplexity != nil {
		p.ServiceLineComplexity = *o.ServiceLineComplexity
	}
	if o.ChargeRange != nil {
		p.ChargeRange = *o.ChargeRange
	}
	if o.DiagnosisWeights != nil {
		p.DiagnosisWeights = *o.DiagnosisWeights
	}
	if o.ProviderTypeWeights != nil {
		p.ProviderTypeWeights = *o.ProviderTypeWeights
	}
	return p
}
