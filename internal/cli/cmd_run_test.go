package cli

import (
	"testing"
)

func TestLoadRunConfigFlagOverrides(t *testing.T) {
	workDir = t.TempDir()
	cmd := newRunCmd()
	if err := cmd.Flags().Set("auto-approve", "true"); err != nil {
		t.Fatal(err)
	}
	if err := cmd.Flags().Set("max-healing-attempts", "5"); err != nil {
		t.Fatal(err)
	}

	cfg, err := loadRunConfig(cmd)
	if err != nil {
		t.Fatalf("loadRunConfig() error = %v", err)
	}
	if !cfg.Workflow.AutoApprove {
		t.Error("AutoApprove should be overridden to true")
	}
	if cfg.Workflow.MaxHealingAttempts != 5 {
		t.Errorf("MaxHealingAttempts = %d, want 5", cfg.Workflow.MaxHealingAttempts)
	}
	if cfg.Workflow.AutoCommit {
		t.Error("AutoCommit should keep its default without the flag")
	}
}

func TestLoadRunConfigRejectsBadHealingBudget(t *testing.T) {
	workDir = t.TempDir()
	cmd := newRunCmd()
	if err := cmd.Flags().Set("max-healing-attempts", "0"); err != nil {
		t.Fatal(err)
	}
	if _, err := loadRunConfig(cmd); err == nil {
		t.Error("zero healing budget should be rejected")
	}
}

func TestBuildEngineWiring(t *testing.T) {
	workDir = t.TempDir()
	cmd := newRunCmd()
	cfg, err := loadRunConfig(cmd)
	if err != nil {
		t.Fatal(err)
	}

	eng, err := buildEngine(cfg)
	if err != nil {
		t.Fatalf("buildEngine() error = %v", err)
	}
	if eng == nil {
		t.Fatal("engine should be constructed")
	}
}
