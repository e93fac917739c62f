// Package llm is the optional pluggable LLM backend: free-text entity
// extraction for C6 and narrative enrichment for C12, both genkit-
// orchestrated following the teacher's DefineFlow shape
// (internal/llm/analyst_flow.go, internal/driven/analyzer.go's
// unifiedAnalysisFlow). Neither capability is ever load-bearing: a flow
// error degrades to zero extracted entities or an empty narrative, never
// an investigation failure.
package llm

import (
	"context"
	"fmt"

	"github.com/firebase/genkit/go/ai"
	genkitcore "github.com/firebase/genkit/go/core"
	"github.com/firebase/genkit/go/genkit"
	"go.uber.org/zap"

	"github.com/osint-pipeline/investigator/internal/models"
	"github.com/osint-pipeline/investigator/internal/parser"
	"github.com/osint-pipeline/investigator/internal/report"
)

// Provider wires genkit to the two optional seams the pipeline exposes:
// parser.TextExtractor and report.NarrativeProvider. Both interfaces are
// satisfied directly (no adapter type) so a *Provider can be passed
// straight into parser.New and report.New.
type Provider struct {
	g             *genkit.Genkit
	modelName     string
	logger        *zap.SugaredLogger
	extractFlow   *genkitcore.Flow[*ExtractionRequest, *ExtractionResponse, struct{}]
	narrativeFlow *genkitcore.Flow[*NarrativeRequest, *NarrativeResponse, struct{}]
}

// New builds a Provider against an already-initialized genkit app
// (genkit.Init with whatever model plugin the deployment configures,
// mirroring the teacher's cmd/main.go NewSecurityProxyWithGenkit
// wiring). modelName is the fully-qualified genkit model reference, e.g.
// "googleai/gemini-2.5-flash". logger may be nil, in which case a no-op
// logger is used.
func New(g *genkit.Genkit, modelName string, logger *zap.Logger) *Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Provider{g: g, modelName: modelName, logger: logger.Sugar()}
	p.extractFlow = defineExtractionFlow(g, modelName, p.logger)
	p.narrativeFlow = defineNarrativeFlow(g, modelName, p.logger)
	return p
}

// ExtractEntities implements parser.TextExtractor. resultID is carried
// through only for logging; genkit tracing has no request-scoped
// context to attach to here since the parser interface is synchronous
// and context-free, so a background context drives the flow run.
func (p *Provider) ExtractEntities(resultID string, text string) ([]parser.ExtractedText, error) {
	if p == nil || p.extractFlow == nil {
		return nil, nil
	}

	resp, err := p.extractFlow.Run(context.Background(), &ExtractionRequest{ResultID: resultID, Text: text})
	if err != nil {
		p.logger.Errorw("llm: entity extraction failed", "result_id", resultID, "error", err)
		return nil, fmt.Errorf("llm.ExtractEntities: %w", err)
	}
	if resp == nil {
		return nil, nil
	}

	out := make([]parser.ExtractedText, 0, len(resp.Entities))
	for _, e := range resp.Entities {
		out = append(out, parser.ExtractedText{
			EntityType: e.EntityType,
			Value:      e.Value,
			Confidence: e.Confidence,
		})
	}
	return out, nil
}

// Narrative implements report.NarrativeProvider.
func (p *Provider) Narrative(summary models.ExecutiveSummary, exposures models.ExposureAnalysis) (string, error) {
	if p == nil || p.narrativeFlow == nil {
		return "", nil
	}

	resp, err := p.narrativeFlow.Run(context.Background(), &NarrativeRequest{Summary: summary, Exposures: exposures})
	if err != nil {
		p.logger.Errorw("llm: narrative generation failed", "subject", summary.SubjectName, "error", err)
		return "", fmt.Errorf("llm.Narrative: %w", err)
	}
	if resp == nil {
		return "", nil
	}
	return resp.Narrative, nil
}

func defineExtractionFlow(g *genkit.Genkit, modelName string, logger *zap.SugaredLogger) *genkitcore.Flow[*ExtractionRequest, *ExtractionResponse, struct{}] {
	return genkit.DefineFlow(
		g, "entityExtractionFlow",
		func(ctx context.Context, req *ExtractionRequest) (*ExtractionResponse, error) {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("context cancelled before entity extraction: %w", err)
			}

			logger.Infow("llm: extracting entities", "result_id", req.ResultID, "bytes", len(req.Text))

			result, _, err := genkit.GenerateData[ExtractionResponse](
				ctx, g,
				ai.WithModelName(modelName),
				ai.WithPrompt(buildExtractionPrompt(req)),
			)
			if err != nil {
				return nil, fmt.Errorf("entity extraction LLM call failed: %w", err)
			}

			logger.Infow("llm: extracted entities", "count", len(result.Entities), "result_id", req.ResultID)
			return result, nil
		},
	)
}

func defineNarrativeFlow(g *genkit.Genkit, modelName string, logger *zap.SugaredLogger) *genkitcore.Flow[*NarrativeRequest, *NarrativeResponse, struct{}] {
	return genkit.DefineFlow(
		g, "narrativeFlow",
		func(ctx context.Context, req *NarrativeRequest) (*NarrativeResponse, error) {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("context cancelled before narrative generation: %w", err)
			}

			logger.Infow("llm: generating narrative", "subject", req.Summary.SubjectName, "overall_score", req.Summary.OverallScore)

			result, _, err := genkit.GenerateData[NarrativeResponse](
				ctx, g,
				ai.WithModelName(modelName),
				ai.WithPrompt(buildNarrativePrompt(req)),
			)
			if err != nil {
				return nil, fmt.Errorf("narrative LLM call failed: %w", err)
			}

			return result, nil
		},
	)
}

// NullProvider is the zero-configuration default: both methods are
// no-ops returning no error. Explicit rather than a bare nil interface
// value so wiring code (cmd/apiserver, cmd/osint-cli) never has to reason
// about a nil-pointer-in-a-non-nil-interface footgun when no model
// credentials are configured.
type NullProvider struct{}

func (NullProvider) ExtractEntities(string, string) ([]parser.ExtractedText, error) { return nil, nil }
func (NullProvider) Narrative(models.ExecutiveSummary, models.ExposureAnalysis) (string, error) {
	return "", nil
}

var (
	_ parser.TextExtractor     = (*Provider)(nil)
	_ report.NarrativeProvider = (*Provider)(nil)
	_ parser.TextExtractor     = NullProvider{}
	_ report.NarrativeProvider = NullProvider{}
)
