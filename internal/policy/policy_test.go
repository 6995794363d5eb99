package policy

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func docWithServices(services map[string]*ServicePolicy) *Document {
	return &Document{Version: SupportedVersion, Services: services}
}

func TestResolveServiceOverridesBase(t *testing.T) {
	doc := &Document{
		Version: SupportedVersion,
		Base: &PolicySet{Metrics: map[string]*MetricPolicy{
			"latency": {Regression: &RegressionPolicy{MaxIncreasePercent: ptr(10), Action: ActionFail}},
		}},
		Services: map[string]*ServicePolicy{
			"checkout": {Metrics: map[string]*MetricPolicy{
				"latency": {Regression: &RegressionPolicy{MaxIncreasePercent: ptr(25)}},
			}},
		},
	}

	pol, err := Resolve(doc, "checkout", "latency")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *pol.Regression.MaxIncreasePercent != 25 {
		t.Fatalf("service override lost: %v", *pol.Regression.MaxIncreasePercent)
	}
	// Unset fields fall through to the base level.
	if pol.Regression.Action != ActionFail {
		t.Fatalf("expected inherited action fail, got %q", pol.Regression.Action)
	}
}

func TestResolveInheritedService(t *testing.T) {
	doc := docWithServices(map[string]*ServicePolicy{
		"base-service": {Metrics: map[string]*MetricPolicy{
			"x": {Regression: &RegressionPolicy{MaxIncreasePercent: ptr(42), Action: ActionWarn}},
		}},
		"child": {Inherits: "base-service"},
	})

	child, err := Resolve(doc, "child", "x")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	parent, err := Resolve(doc, "base-service", "x")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if *child.Regression.MaxIncreasePercent != *parent.Regression.MaxIncreasePercent ||
		child.Regression.Action != parent.Regression.Action {
		t.Fatalf("child should resolve identically to parent: %+v vs %+v", child.Regression, parent.Regression)
	}
}

func TestResolveChainedInheritance(t *testing.T) {
	doc := docWithServices(map[string]*ServicePolicy{
		"root": {Metrics: map[string]*MetricPolicy{
			"x": {Regression: &RegressionPolicy{MaxIncreasePercent: ptr(5), Action: ActionFail}},
		}},
		"mid": {Inherits: "root", Metrics: map[string]*MetricPolicy{
			"x": {Regression: &RegressionPolicy{Action: ActionWarn}},
		}},
		"leaf": {Inherits: "mid"},
	})

	pol, err := Resolve(doc, "leaf", "x")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *pol.Regression.MaxIncreasePercent != 5 {
		t.Fatalf("expected root threshold 5, got %v", *pol.Regression.MaxIncreasePercent)
	}
	if pol.Regression.Action != ActionWarn {
		t.Fatalf("expected mid action warn, got %q", pol.Regression.Action)
	}
}

func TestResolveInheritanceCycle(t *testing.T) {
	doc := docWithServices(map[string]*ServicePolicy{
		"a": {Inherits: "b"},
		"b": {Inherits: "a"},
	})

	if _, err := Resolve(doc, "a", "x"); err == nil {
		t.Fatal("expected a cycle error")
	}
}

func TestResolveUnknownMetricIsNil(t *testing.T) {
	doc := docWithServices(nil)
	pol, err := Resolve(doc, "", "unconfigured")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pol != nil {
		t.Fatalf("expected nil policy, got %+v", pol)
	}
}

func TestResolveLegacyFlatMetrics(t *testing.T) {
	doc := &Document{
		Version: SupportedVersion,
		Metrics: map[string]*MetricPolicy{
			"latency": {Regression: &RegressionPolicy{MaxIncreasePercent: ptr(7)}},
		},
	}
	pol, err := Resolve(doc, "", "latency")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pol == nil || *pol.Regression.MaxIncreasePercent != 7 {
		t.Fatalf("legacy metrics block ignored: %+v", pol)
	}
}

func TestEvaluateRegressionActions(t *testing.T) {
	pol := &MetricPolicy{Regression: &RegressionPolicy{
		MaxIncreasePercent: ptr(10),
		Action:             ActionFail,
	}}

	eval := EvaluateRegression("latency", 50, 0.001, 2.0, true, pol)
	if eval.Action != ActionFail {
		t.Fatalf("expected fail, got %s", eval.Action)
	}
	if !eval.ShouldRollback {
		t.Fatal("fail action should recommend rollback")
	}

	eval = EvaluateRegression("latency", 50, 0.3, 2.0, false, pol)
	if eval.Action != ActionWarn {
		t.Fatalf("non-significant breach should warn, got %s", eval.Action)
	}
	if eval.ShouldRollback {
		t.Fatal("warn must not recommend rollback")
	}
	if !strings.Contains(eval.Reason, "not statistically significant") {
		t.Fatalf("reason should name the downgrade: %q", eval.Reason)
	}

	eval = EvaluateRegression("latency", 2, 0.001, 2.0, true, pol)
	if eval.Action != ActionPass {
		t.Fatalf("small change should pass, got %s", eval.Action)
	}
}

func TestEvaluateRegressionIgnoreNormalizesToPass(t *testing.T) {
	pol := &MetricPolicy{Regression: &RegressionPolicy{
		MaxIncreasePercent: ptr(10),
		Action:             ActionIgnore,
	}}

	eval := EvaluateRegression("latency", 50, 0.001, 2.0, true, pol)
	if eval.Action != ActionPass {
		t.Fatalf("ignore should normalize to pass, got %s", eval.Action)
	}
	if eval.ShouldRollback {
		t.Fatal("pass must not recommend rollback")
	}
}

func TestEvaluateRegressionDefaults(t *testing.T) {
	eval := EvaluateRegression("latency", 50, 0.001, 2.0, true, nil)
	if eval.Action != ActionFail {
		t.Fatalf("default policy should fail a clear regression, got %s", eval.Action)
	}
}

func TestEvaluateRegressionDecreasePasses(t *testing.T) {
	eval := EvaluateRegression("latency", -50, 0.001, -2.0, true, nil)
	if eval.Action != ActionPass {
		t.Fatalf("a decrease should pass, got %s", eval.Action)
	}
}

func TestEvaluateThreshold(t *testing.T) {
	pol := &MetricPolicy{Threshold: &ThresholdPolicy{
		Max:    ptr(100),
		Min:    ptr(10),
		Action: ActionFail,
	}}

	if eval := EvaluateThreshold("qps", 150, pol); eval.Action != ActionFail || !eval.ShouldRollback {
		t.Fatalf("above max should fail, got %+v", eval)
	}
	if eval := EvaluateThreshold("qps", 5, pol); eval.Action != ActionFail {
		t.Fatalf("below min should fail, got %+v", eval)
	}
	if eval := EvaluateThreshold("qps", 50, pol); eval.Action != ActionPass {
		t.Fatalf("inside bounds should pass, got %+v", eval)
	}
	if eval := EvaluateThreshold("qps", 150, nil); eval.Action != ActionPass {
		t.Fatalf("no policy should pass, got %+v", eval)
	}
}

func TestValidateFindings(t *testing.T) {
	doc := &Document{
		Version: 2,
		Services: map[string]*ServicePolicy{
			"a": {Inherits: "missing"},
			"b": {Inherits: "c"},
			"c": {Inherits: "b"},
		},
		Metrics: map[string]*MetricPolicy{
			"latency": {
				Regression: &RegressionPolicy{PValue: ptr(1.5), Action: "explode"},
				Threshold:  &ThresholdPolicy{Max: ptr(1), Min: ptr(10)},
			},
		},
	}

	findings := Validate(doc)

	wantFragments := []string{
		"unsupported policy version",
		"unknown service",
		"circular inheritance",
		"outside [0, 1]",
		"unknown action",
		"below min",
	}
	for _, fragment := range wantFragments {
		found := false
		for _, f := range findings {
			if strings.Contains(f.Message, fragment) {
				found = true
				break
			}
		}
		if !found {
			t.Fatalf("missing finding %q in %+v", fragment, findings)
		}
	}
}

func TestValidateCleanDocument(t *testing.T) {
	doc := &Document{
		Version: SupportedVersion,
		Base: &PolicySet{Metrics: map[string]*MetricPolicy{
			"latency": {Regression: &RegressionPolicy{MaxIncreasePercent: ptr(10), PValue: ptr(0.05), Action: ActionFail}},
		}},
	}
	if findings := Validate(doc); len(findings) != 0 {
		t.Fatalf("expected no findings, got %+v", findings)
	}
}

func TestLoadRejectsBadVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	if err := os.WriteFile(path, []byte("version: 3\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	_, findings, err := Load(path)
	if err == nil {
		t.Fatal("expected load to fail on version 3")
	}
	if len(findings) == 0 {
		t.Fatal("expected validation findings alongside the error")
	}
}

func TestLoadValidDocument(t *testing.T) {
	content := `
version: 1
base:
  metrics:
    latency:
      regression:
        max_increase_percent: 20
        action: warn
services:
  checkout:
    inherits: payments
    metrics:
      latency:
        regression:
          max_increase_percent: 30
  payments:
    metrics: {}
`
	path := filepath.Join(t.TempDir(), "policy.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	doc, findings, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v (findings %+v)", err, findings)
	}
	pol, err := Resolve(doc, "checkout", "latency")
	if err != nil {
		t.Fatalf("unexpected resolve error: %v", err)
	}
	if *pol.Regression.MaxIncreasePercent != 30 {
		t.Fatalf("expected service override 30, got %v", *pol.Regression.MaxIncreasePercent)
	}
	if pol.Regression.Action != ActionWarn {
		t.Fatalf("expected base action warn, got %q", pol.Regression.Action)
	}
}
