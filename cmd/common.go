package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/alantheprice/dialoguegen/pkg/configuration"
	"github.com/alantheprice/dialoguegen/pkg/llm"
	"github.com/alantheprice/dialoguegen/pkg/utils"
)

// seams for tests
var (
	newInvoker = llm.NewInvoker
	getLogger  = utils.GetLogger
)

// appContext is what every command needs after flags are parsed
type appContext struct {
	config  *configuration.Config
	logger  *utils.Logger
	invoker llm.Invoker
}

func (a *appContext) interactive() bool {
	return !skipPrompt && !a.config.SkipPrompt
}

// setupApp loads configuration and the logger, and the invoker when asked
func setupApp(withInvoker bool) (*appContext, error) {
	cfg, err := configuration.Load(configPath)
	if err != nil {
		return nil, err
	}
	app := &appContext{config: cfg}
	app.logger = getLogger(!app.interactive())

	if !withInvoker {
		return app, nil
	}

	clientType, model, err := configuration.ResolveProviderModel(cfg, providerFlag, modelFlag)
	if err != nil {
		return nil, err
	}
	apiKey, err := configuration.ResolveAPIKey(string(clientType), app.interactive())
	if err != nil {
		return nil, err
	}
	invoker, err := newInvoker(cfg.InvokerConfig(clientType, model, apiKey, app.logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create %s client: %w", clientType, err)
	}
	app.invoker = invoker
	app.logger.Logf("Using provider %s with model %s", invoker.Provider(), invoker.Model())
	return app, nil
}

// heading prints a title-cased section heading
func heading(w io.Writer, title string) {
	fmt.Fprintf(w, "\n== %s ==\n", cases.Title(language.Und, cases.NoLower).String(title))
}

// confirmOverwrite asks before replacing an existing file. Without a
// terminal the answer defaults to yes.
func confirmOverwrite(logger *utils.Logger, path string) bool {
	if _, err := os.Stat(path); err != nil {
		return true
	}
	return logger.AskForConfirmation(fmt.Sprintf("%s exists. Overwrite?", path), true)
}

// writeOutput serialises v to path as YAML for .yaml/.yml and JSON otherwise
func writeOutput(path string, v interface{}) error {
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(v)
	default:
		data, err = json.MarshalIndent(v, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// readInput reads path, or stdin when path is "-" or empty
func readInput(path string, stdin io.Reader) ([]byte, error) {
	if path == "" || path == "-" {
		return io.ReadAll(stdin)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}
