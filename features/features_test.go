//go:build integration

package features

import (
	"os"
	"testing"

	"speech-transcriber/features/steps"

	"github.com/cucumber/godog"
	"github.com/cucumber/godog/colors"
)

// Run a subset with GODOG_TAGS, e.g. GODOG_TAGS=@youtube go test -tags=integration ./features/...
func TestFeatures(t *testing.T) {
	opts := godog.Options{
		Format:   "pretty",
		Output:   colors.Colored(os.Stdout),
		Paths:    []string{"transcription.feature", "config.feature", "setup.feature"},
		Tags:     os.Getenv("GODOG_TAGS"),
		Strict:   true,
		TestingT: t,
	}

	suite := godog.TestSuite{
		Name:                "speech-transcriber",
		ScenarioInitializer: steps.InitializeScenario,
		Options:             &opts,
	}

	if suite.Run() != 0 {
		t.Fatal("feature scenarios failed")
	}
}
