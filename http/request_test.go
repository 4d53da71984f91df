package http

import (
	"errors"
	"testing"
)

func TestParsePredictRequest(t *testing.T) {
	features, err := ParsePredictRequest([]byte(validBody))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if features.PH != 3.0 || features.Alcohol != 8.8 || features.FixedAcidity != 7.0 {
		t.Fatalf("unexpected features: %+v", features)
	}
}

func TestParsePredictRequestIgnoresUnknownKeys(t *testing.T) {
	body := `{"colour": "white", ` + validBody[1:]
	if _, err := ParsePredictRequest([]byte(body)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestParsePredictRequestErrors(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantCount int
		wantType  string
	}{
		{"empty body", "", 1, typeMissing},
		{"empty object", "{}", 11, typeMissing},
		{"array body", "[1, 2, 3]", 1, typeObject},
		{"string body", `"wine"`, 1, typeObject},
		{"truncated", `{"pH": 3`, 1, typeInvalidJSON},
		{"trailing data", validBody + " {}", 1, typeInvalidJSON},
		{"not finite string", replaceField("alcohol", `"Infinity"`), 1, typeFinite},
		{"nan string", replaceField("alcohol", `"NaN"`), 1, typeFinite},
		{"overflow", replaceField("density", `1e400`), 1, typeFinite},
		{"empty string", replaceField("density", `""`), 1, typeFloatParse},
		{"object value", replaceField("density", `{"value": 1}`), 1, typeFloat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParsePredictRequest([]byte(tt.body))
			var verrs ValidationErrors
			if !errors.As(err, &verrs) {
				t.Fatalf("expected ValidationErrors, got %v", err)
			}
			if len(verrs) != tt.wantCount {
				t.Fatalf("expected %d errors, got %d: %v", tt.wantCount, len(verrs), verrs)
			}
			if verrs[0].Type != tt.wantType {
				t.Fatalf("expected type %q, got %q", tt.wantType, verrs[0].Type)
			}
		})
	}
}

func TestParsePredictRequestReportsAllFields(t *testing.T) {
	body := `{
		"fixed_acidity": "x",
		"volatile_acidity": 0.27,
		"citric_acid": null,
		"residual_sugar": 20.7,
		"chlorides": 0.045,
		"free_sulfur_dioxide": 45,
		"total_sulfur_dioxide": 170,
		"density": 1.001,
		"sulphates": 0.45,
		"alcohol": 8.8
	}`
	_, err := ParsePredictRequest([]byte(body))
	var verrs ValidationErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("expected ValidationErrors, got %v", err)
	}
	want := []string{"fixed_acidity", "citric_acid", "pH"}
	if len(verrs) != len(want) {
		t.Fatalf("expected %d errors, got %v", len(want), verrs)
	}
	for i, field := range want {
		if verrs[i].Loc[1] != field {
			t.Fatalf("error %d: got loc %v want %s", i, verrs[i].Loc, field)
		}
	}
	if verrs.Error() == "" {
		t.Fatal("empty error message")
	}
}

func replaceField(field, value string) string {
	body := `{"fixed_acidity": 7, "volatile_acidity": 0.27, "citric_acid": 0.36, "residual_sugar": 20.7,
		"chlorides": 0.045, "free_sulfur_dioxide": 45, "total_sulfur_dioxide": 170, "density": 1.001,
		"pH": 3.0, "sulphates": 0.45, "alcohol": 8.8, `
	return body + `"` + field + `": ` + value + `}`
}
