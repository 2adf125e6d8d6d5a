package cmd

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/valpere/nmtg/internal/inference"
)

func TestEngineConfig(t *testing.T) {
	flags := pflag.NewFlagSet("translate", pflag.ContinueOnError)
	flags.String("credentials", "", "")
	flags.String("project", "", "")
	flags.String("api-key", "", "")
	flags.String("model", "", "")
	flags.String("base-url", "", "")
	flags.Duration("timeout", 60*time.Second, "")
	if err := flags.Parse([]string{"--project", "my-project", "--model", "llama3.2", "--timeout", "5s"}); err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	v := viper.New()
	if err := v.BindPFlags(flags); err != nil {
		t.Fatalf("BindPFlags failed: %v", err)
	}
	v.Set("api-key", "secret")
	v.Set("base-url", "http://localhost:11434")

	got, err := engineConfig(v)
	if err != nil {
		t.Fatalf("engineConfig failed: %v", err)
	}

	want := inference.Config{
		ProjectID: "my-project",
		APIKey:    "secret",
		Model:     "llama3.2",
		BaseURL:   "http://localhost:11434",
		Timeout:   5 * time.Second,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("engineConfig() mismatch (-want +got):\n%s", diff)
	}
}
