package cmd

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/ferroterm/ferroterm/internal/config"
	"github.com/ferroterm/ferroterm/internal/ferrors"
	"github.com/ferroterm/ferroterm/internal/modelhost"
	"github.com/ferroterm/ferroterm/internal/modelhost/adapter"
)

// unimplementedRunner backs a "local_quantized" registration when no
// real tensor runtime has been wired in. Generate always fails; the
// actual MLC-style or llama.cpp-style runtime is a pluggable external
// engine (spec's own non-goal is "implementing a production GGUF
// tensor runtime"), so this is the seam a real deployment replaces.
type unimplementedRunner struct {
	modelPath string
}

func (r *unimplementedRunner) Generate(ctx context.Context, prompt string, params adapter.Parameters, out chan<- adapter.StreamToken) (adapter.FinishReason, int, error) {
	return adapter.FinishError, 0, ferrors.New(ferrors.ModelLoadFailed, "unimplementedRunner.Generate",
		fmt.Sprintf("no local quantized tensor runtime is wired in for %q; register a real adapter.InferenceRunner to serve this model", r.modelPath))
}

// buildAdapterFactory translates one config.ModelConfig into the
// AdapterFactory modelhost.RegisterModel needs, picking the adapter
// constructor by the configured type string.
func buildAdapterFactory(m config.ModelConfig) (func() adapter.Adapter, adapter.ModelType, error) {
	info := adapter.Info{
		Name:           m.Name,
		ContextWindow:  m.ContextWindow,
		VramRequiredMB: m.VramRequiredMB,
	}

	switch m.Type {
	case "local_quantized":
		return func() adapter.Adapter {
			return adapter.NewLocalQuantizedAdapter(info, &unimplementedRunner{modelPath: m.Path})
		}, adapter.ModelTypeLocalQuantized, nil

	case "local_server":
		return func() adapter.Adapter {
			return adapter.NewLocalServerAdapter(adapter.LocalServerConfig{
				Info:     info,
				Command:  m.Path,
				Endpoint: m.APIEndpoint,
			})
		}, adapter.ModelTypeLocalServer, nil

	case "remote_http", "openai", "anthropic", "gemini", "ollama":
		provider := adapter.ProviderGeneric
		switch m.Type {
		case "openai":
			provider = adapter.ProviderOpenAI
		case "anthropic":
			provider = adapter.ProviderAnthropic
		case "gemini":
			provider = adapter.ProviderGemini
		case "ollama":
			provider = adapter.ProviderOllama
		}
		return func() adapter.Adapter {
			return adapter.NewRemoteHTTPAdapter(adapter.RemoteHTTPConfig{
				Info:      info,
				Provider:  provider,
				Endpoint:  m.APIEndpoint,
				APIKeyEnv: m.APIKeyEnv,
			})
		}, adapter.ModelTypeRemoteHTTP, nil

	default:
		return nil, 0, fmt.Errorf("model %q: unknown type %q", m.Name, m.Type)
	}
}

// registerModels builds a Model Host from cfg's registry, translating
// internal/config.ModelConfig (the YAML-facing shape) into
// modelhost.ModelConfig (the Host-facing shape, which needs a concrete
// AdapterFactory rather than a declarative type string).
func registerModels(host *modelhost.Host, cfg *config.Config) error {
	for _, m := range cfg.Models {
		factory, modelType, err := buildAdapterFactory(m)
		if err != nil {
			return err
		}

		params := adapter.Parameters{}
		if v, ok := m.DefaultParameters["temperature"]; ok {
			if f, err := strconv.ParseFloat(v, 32); err == nil {
				params.Temperature = float32(f)
			}
		}
		if v, ok := m.DefaultParameters["top_p"]; ok {
			if f, err := strconv.ParseFloat(v, 32); err == nil {
				params.TopP = float32(f)
			}
		}
		if v, ok := m.DefaultParameters["max_tokens"]; ok {
			if n, err := strconv.ParseUint(v, 10, 32); err == nil {
				params.MaxTokens = uint32(n)
			}
		}

		err = host.RegisterModel(modelhost.ModelConfig{
			Name:              m.Name,
			Type:              modelType,
			ContextWindow:     m.ContextWindow,
			VramRequiredMB:    m.VramRequiredMB,
			WarmPoolSize:      m.WarmPoolSize,
			MaxConcurrent:     m.MaxConcurrent,
			FallbackModels:    m.FallbackModels,
			DefaultParameters: params,
			AdapterFactory:    factory,
		})
		if err != nil {
			return fmt.Errorf("register model %q: %w", m.Name, err)
		}
	}
	return nil
}

func newModelsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models",
		Short: "List the models configured in config.yaml",
	}
	cmd.AddCommand(newModelsListCmd(), newModelsCheckCmd())
	return cmd
}

func newModelsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured models",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if len(cfg.Models) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no models configured")
				return nil
			}
			for _, m := range cfg.Models {
				fmt.Fprintf(cmd.OutOrStdout(), "%-20s %-14s ctx=%-8d vram=%dMB warm=%d\n",
					m.Name, m.Type, m.ContextWindow, m.VramRequiredMB, m.WarmPoolSize)
			}
			return nil
		},
	}
}

func newModelsCheckCmd() *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "check <name>",
		Short: "Register and load one configured model, reporting success or failure",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			log := newSessionLogger(cfg)
			defer log.Close()
			host := modelhost.New(totalVramMB(cfg), log)
			if err := registerModels(host, cfg); err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			if err := host.LoadModel(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: loaded\n", args[0])
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "how long to wait for the model to load")
	return cmd
}
