package ml

// FeatureCount is the number of physicochemical measurements in a feature record.
const FeatureCount = 11

// TargetColumn is the dataset column holding the quality label.
const TargetColumn = "quality"

// WineFeatures is one feature record. Field order matches the column order
// the model is fit against.
type WineFeatures struct {
	FixedAcidity       float64 `csv:"fixed acidity" json:"fixed_acidity"`
	VolatileAcidity    float64 `csv:"volatile acidity" json:"volatile_acidity"`
	CitricAcid         float64 `csv:"citric acid" json:"citric_acid"`
	ResidualSugar      float64 `csv:"residual sugar" json:"residual_sugar"`
	Chlorides          float64 `csv:"chlorides" json:"chlorides"`
	FreeSulfurDioxide  float64 `csv:"free sulfur dioxide" json:"free_sulfur_dioxide"`
	TotalSulfurDioxide float64 `csv:"total sulfur dioxide" json:"total_sulfur_dioxide"`
	Density            float64 `csv:"density" json:"density"`
	PH                 float64 `csv:"pH" json:"pH"`
	Sulphates          float64 `csv:"sulphates" json:"sulphates"`
	Alcohol            float64 `csv:"alcohol" json:"alcohol"`
}

// WineSample is a labelled row of the training dataset.
type WineSample struct {
	WineFeatures
	Quality float64 `csv:"quality" json:"quality"`
}

func FeatureVector(feature WineFeatures) []float64 {
	return []float64{
		feature.FixedAcidity,
		feature.VolatileAcidity,
		feature.CitricAcid,
		feature.ResidualSugar,
		feature.Chlorides,
		feature.FreeSulfurDioxide,
		feature.TotalSulfurDioxide,
		feature.Density,
		feature.PH,
		feature.Sulphates,
		feature.Alcohol,
	}
}

// FeatureFromVector is the inverse of FeatureVector.
func FeatureFromVector(vector []float64) (WineFeatures, error) {
	if len(vector) != FeatureCount {
		return WineFeatures{}, ErrFeatureMismatch
	}
	return WineFeatures{
		FixedAcidity:       vector[0],
		VolatileAcidity:    vector[1],
		CitricAcid:         vector[2],
		ResidualSugar:      vector[3],
		Chlorides:          vector[4],
		FreeSulfurDioxide:  vector[5],
		TotalSulfurDioxide: vector[6],
		Density:            vector[7],
		PH:                 vector[8],
		Sulphates:          vector[9],
		Alcohol:            vector[10],
	}, nil
}

// FeatureNames returns the request field names in vector order.
func FeatureNames() []string {
	return []string{
		"fixed_acidity",
		"volatile_acidity",
		"citric_acid",
		"residual_sugar",
		"chlorides",
		"free_sulfur_dioxide",
		"total_sulfur_dioxide",
		"density",
		"pH",
		"sulphates",
		"alcohol",
	}
}

// ColumnNames returns the dataset header names in vector order.
func ColumnNames() []string {
	return []string{
		"fixed acidity",
		"volatile acidity",
		"citric acid",
		"residual sugar",
		"chlorides",
		"free sulfur dioxide",
		"total sulfur dioxide",
		"density",
		"pH",
		"sulphates",
		"alcohol",
	}
}
