package classify

import "testing"

func TestClassifyVisa(t *testing.T) {
	cat, conf := Classify("New visa rules for digital nomads", "")
	if cat != Visa {
		t.Errorf("expected Visa, got %s", cat)
	}
	if conf != 70 {
		t.Errorf("expected confidence 70, got %v", conf)
	}
}

func TestClassifyResidence(t *testing.T) {
	cat, conf := Classify("Residence card renewal procedures", "Extension of period of stay")
	if cat != Residence {
		t.Errorf("expected Residence, got %s", cat)
	}
	if conf != 100 {
		t.Errorf("expected capped confidence 100, got %v", conf)
	}
}

func TestClassifyNaturalization(t *testing.T) {
	cat, _ := Classify("Naturalization application guidance", "")
	if cat != Naturalization {
		t.Errorf("expected Naturalization, got %s", cat)
	}
}

func TestClassifyEmployment(t *testing.T) {
	cat, _ := Classify("Specified skilled worker exam schedule", "")
	if cat != Employment {
		t.Errorf("expected Employment, got %s", cat)
	}
}

func TestClassifyJapanese(t *testing.T) {
	cat, _ := Classify("在留カードの更新について", "")
	if cat != Residence {
		t.Errorf("expected Residence, got %s", cat)
	}
}

func TestClassifyNoticeKeywords(t *testing.T) {
	cat, _ := Classify("Office closure for New Year holiday", "")
	if cat != Notice {
		t.Errorf("expected Notice, got %s", cat)
	}
}

func TestClassifyEmptyInput(t *testing.T) {
	cat, conf := Classify("", "")
	if cat != Notice {
		t.Errorf("expected Notice for empty input, got %s", cat)
	}
	if conf != FallbackConfidence {
		t.Errorf("expected fallback confidence, got %v", conf)
	}
}

func TestClassifyDefaultsToNotice(t *testing.T) {
	cat, conf := Classify("Our Year in Review", "A look back at what we accomplished")
	if cat != Notice || conf != FallbackConfidence {
		t.Errorf("expected Notice/%d for generic content, got %s/%v", FallbackConfidence, cat, conf)
	}
}

func TestClassifyTieKeepsCanonicalOrder(t *testing.T) {
	cat, _ := Classify("Visa and residence", "")
	if cat != Visa {
		t.Errorf("expected Visa on tie, got %s", cat)
	}
}

func TestClassifyTitleWeightedHigher(t *testing.T) {
	// "work" in the title outweighs a single "visa" in the description
	cat, _ := Classify("Work permit update", "visa")
	if cat != Employment {
		t.Errorf("expected Employment from title keyword, got %s", cat)
	}
}

func TestConfidence(t *testing.T) {
	tests := []struct {
		score int
		want  float64
	}{
		{0, 30},
		{1, 55},
		{2, 70},
		{4, 100},
		{10, 100},
	}
	for _, tt := range tests {
		if got := Confidence(tt.score); got != tt.want {
			t.Errorf("Confidence(%d) = %v, want %v", tt.score, got, tt.want)
		}
	}
}

func TestAllCategories(t *testing.T) {
	cats := AllCategories()
	if len(cats) != 5 {
		t.Errorf("expected 5 categories, got %d", len(cats))
	}
	if cats[len(cats)-1] != Notice {
		t.Errorf("expected Notice last, got %s", cats[len(cats)-1])
	}
}
