package nn

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

var featureOrder = []string{"ph", "turbidity", "nitrate", "lead", "oxygen"}

func loadTestForest(t *testing.T) *Forest {
	t.Helper()
	f, err := Load(filepath.Join("testdata", "forest.yaml"), featureOrder)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	return f
}

func near(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestLoadYAML(t *testing.T) {
	f := loadTestForest(t)

	s := f.Summary()
	if s.Name != "water-quality-rf" {
		t.Errorf("Expected name water-quality-rf, got %q", s.Name)
	}
	if s.Trees != 3 {
		t.Errorf("Expected 3 trees, got %d", s.Trees)
	}
	if s.Nodes != 23 {
		t.Errorf("Expected 23 nodes, got %d", s.Nodes)
	}
	if s.MaxDepth != 4 {
		t.Errorf("Expected max depth 4, got %d", s.MaxDepth)
	}
}

func TestLoadJSON(t *testing.T) {
	f, err := Load(filepath.Join("testdata", "forest.json"), featureOrder)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	label, probs, err := f.Classify([]float64{7, 0, 0, 1, 8})
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if label != 1 || !near(probs[1], 0.75) {
		t.Errorf("Expected label 1 with p=0.75, got %d %v", label, probs)
	}
}

func TestClassify(t *testing.T) {
	f := loadTestForest(t)

	tests := []struct {
		name      string
		input     []float64
		wantLabel int
		wantSafe  float64
	}{
		{"nominal", []float64{7, 1, 2, 1, 6}, 1, (0.88 + 0.91 + 0.93) / 3},
		{"high lead", []float64{7, 1, 2, 15, 6}, 0, (0.04 + 0.91 + 12.0/38) / 3},
		{"acidic low oxygen", []float64{5, 1, 2, 1, 3}, 0, (0.25 + 14.0/36 + 0.175) / 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			label, probs, err := f.Classify(tt.input)
			if err != nil {
				t.Fatalf("Classify failed: %v", err)
			}
			if label != tt.wantLabel {
				t.Errorf("Expected label %d, got %d", tt.wantLabel, label)
			}
			if len(probs) != 2 {
				t.Fatalf("Expected 2 probabilities, got %d", len(probs))
			}
			if !near(probs[1], tt.wantSafe) {
				t.Errorf("Expected p(safe)=%v, got %v", tt.wantSafe, probs[1])
			}
			if !near(probs[0]+probs[1], 1) {
				t.Errorf("Probabilities do not sum to 1: %v", probs)
			}
		})
	}
}

func TestClassifyTieGoesToLowerClass(t *testing.T) {
	f := &Forest{
		Classes:  []int{0, 1},
		Features: []string{"x"},
		Trees:    []Tree{{Nodes: []Node{{Value: []float64{5, 5}}}}},
	}
	label, _, err := f.Classify([]float64{1})
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if label != 0 {
		t.Errorf("Expected tie to resolve to class 0, got %d", label)
	}
}

func TestClassifyWrongLength(t *testing.T) {
	f := loadTestForest(t)

	_, _, err := f.Classify([]float64{7, 1})
	if !errors.Is(err, ErrFeatureMismatch) {
		t.Errorf("Expected ErrFeatureMismatch, got %v", err)
	}
}

func TestClassifyConcurrent(t *testing.T) {
	f := loadTestForest(t)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			x := []float64{float64(i % 14), 1, 2, float64(i), 6}
			if _, _, err := f.Classify(x); err != nil {
				t.Errorf("Classify failed: %v", err)
			}
		}(i)
	}
	wg.Wait()
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	write := func(name, body string) string {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(body), 0644); err != nil {
			t.Fatal(err)
		}
		return path
	}

	leaf := "{value: [1, 1]}"
	tests := []struct {
		name    string
		path    string
		wantErr string
	}{
		{"missing file", filepath.Join(dir, "nope.yaml"), "no such file"},
		{"unsupported extension", write("model.pkl", "x"), "unsupported model format"},
		{"garbage", write("garbage.yaml", "::: not yaml"), "decode model"},
		{"unknown field", write("unknown.yaml", "classes: [0, 1]\nbogus: 1\n"), "decode model"},
		{"no trees", write("empty.yaml", "classes: [0, 1]\nfeatures: [ph, turbidity, nitrate, lead, oxygen]\n"), "no trees"},
		{"wrong classes", write("classes.yaml", "classes: [1, 2]\nfeatures: [ph, turbidity, nitrate, lead, oxygen]\ntrees: [{nodes: ["+leaf+"]}]\n"), "classes must be"},
		{"wrong features", write("features.yaml", "classes: [0, 1]\nfeatures: [ph, lead]\ntrees: [{nodes: ["+leaf+"]}]\n"), "expected 5"},
		{"feature order", write("order.yaml", "classes: [0, 1]\nfeatures: [lead, turbidity, nitrate, ph, oxygen]\ntrees: [{nodes: ["+leaf+"]}]\n"), `feature 0 is "lead"`},
		{
			"cycle",
			write("cycle.yaml", "classes: [0, 1]\nfeatures: [ph, turbidity, nitrate, lead, oxygen]\ntrees: [{nodes: [{feature: 0, threshold: 1, left: 1, right: 2}, {feature: 0, left: 1, right: 2}, "+leaf+"]}]\n"),
			"invalid children",
		},
		{
			"child out of range",
			write("range.yaml", "classes: [0, 1]\nfeatures: [ph, turbidity, nitrate, lead, oxygen]\ntrees: [{nodes: [{feature: 0, left: 1, right: 9}, "+leaf+"]}]\n"),
			"invalid children",
		},
		{
			"bad split feature",
			write("split.yaml", "classes: [0, 1]\nfeatures: [ph, turbidity, nitrate, lead, oxygen]\ntrees: [{nodes: [{feature: 7, left: 1, right: 2}, "+leaf+", "+leaf+"]}]\n"),
			"unknown feature",
		},
		{"short leaf", write("leaf.yaml", "classes: [0, 1]\nfeatures: [ph, turbidity, nitrate, lead, oxygen]\ntrees: [{nodes: [{value: [1]}]}]\n"), "class weights"},
		{"zero leaf", write("zero.yaml", "classes: [0, 1]\nfeatures: [ph, turbidity, nitrate, lead, oxygen]\ntrees: [{nodes: [{value: [0, 0]}]}]\n"), "no class weight"},
		{"negative leaf", write("neg.yaml", "classes: [0, 1]\nfeatures: [ph, turbidity, nitrate, lead, oxygen]\ntrees: [{nodes: [{value: [-1, 2]}]}]\n"), "negative"},
		{"nan leaf", write("nan.yaml", "classes: [0, 1]\nfeatures: [ph, turbidity, nitrate, lead, oxygen]\ntrees: [{nodes: [{value: [.nan, 1]}]}]\n"), "non-finite class weight"},
		{"inf leaf", write("inf.yaml", "classes: [0, 1]\nfeatures: [ph, turbidity, nitrate, lead, oxygen]\ntrees: [{nodes: [{value: [1, .inf]}]}]\n"), "non-finite class weight"},
		{
			"nan threshold",
			write("threshold.yaml", "classes: [0, 1]\nfeatures: [ph, turbidity, nitrate, lead, oxygen]\ntrees: [{nodes: [{feature: 0, threshold: .nan, left: 1, right: 2}, "+leaf+", "+leaf+"]}]\n"),
			"non-finite threshold",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(tt.path, featureOrder)
			if err == nil {
				t.Fatal("Expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestLoadDefaultsNameToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "unnamed.yaml")
	body := "classes: [0, 1]\nfeatures: [ph, turbidity, nitrate, lead, oxygen]\ntrees: [{nodes: [{value: [1, 3]}]}]\n"
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}

	f, err := Load(path, featureOrder)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if f.Name != "unnamed" {
		t.Errorf("Expected name 'unnamed', got %q", f.Name)
	}
}

func TestEncodeDecodeYAML(t *testing.T) {
	f := loadTestForest(t)

	data, err := EncodeYAML(f)
	if err != nil {
		t.Fatalf("EncodeYAML failed: %v", err)
	}
	back, err := DecodeYAML(data)
	if err != nil {
		t.Fatalf("DecodeYAML failed: %v", err)
	}
	if err := back.Validate(featureOrder); err != nil {
		t.Fatalf("Decoded forest invalid: %v", err)
	}

	x := []float64{6.8, 2, 3, 4, 7}
	_, want, _ := f.Classify(x)
	_, got, _ := back.Classify(x)
	if !near(want[1], got[1]) {
		t.Errorf("Encoded forest predicts %v, original %v", got, want)
	}
}
