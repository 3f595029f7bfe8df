// internal/workers/integrate-results/handler.go
package integrateresults

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/xeipuuv/gojsonschema"

	stderrors "advisor-engine/internal/common/errors"
	"advisor-engine/internal/common/logger"
	"advisor-engine/internal/engine/orchestrator"
	"advisor-engine/internal/models"
)

const (
	TaskType = "integrate-results"
)

// recommendationSchema guards the ingestion boundary: the fan-out
// collaborators are external and their payloads are not trusted.
const recommendationSchema = `{
	"type": "object",
	"properties": {
		"domain": {"type": "string"},
		"text": {"type": "string"},
		"confidence": {"type": "number"},
		"resourceTags": {"type": "array", "items": {"type": "string"}},
		"deadline": {"type": "string", "format": "date-time"}
	},
	"required": ["domain", "text"]
}`

// ResultArchiver persists the produced result after the run completes.
type ResultArchiver interface {
	Archive(ctx context.Context, result *models.UnifiedResult) error
}

type Handler struct {
	config       *Config
	engine       *orchestrator.Orchestrator
	archive      ResultArchiver
	errorHandler *stderrors.ErrorHandler
	schema       *gojsonschema.Schema
	logger       logger.Logger
}

func NewHandler(config *Config, engine *orchestrator.Orchestrator, archive ResultArchiver, log logger.Logger) *Handler {
	schemaLoader := gojsonschema.NewStringLoader(recommendationSchema)
	schema, err := gojsonschema.NewSchema(schemaLoader)
	if err != nil {
		// The schema is a compile-time constant; failing to parse it is a
		// programming error.
		panic(err)
	}
	return &Handler{
		config:       config,
		engine:       engine,
		archive:      archive,
		errorHandler: stderrors.NewErrorHandler(log),
		schema:       schema,
		logger:       log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.errorHandler.HandleJobError(ctx, client, job, stderrors.NewParseError(err))
		return
	}

	output, err := h.Execute(ctx, &input)
	if err != nil {
		h.errorHandler.HandleJobError(ctx, client, job, err)
		return
	}

	h.completeJob(ctx, client, job, output)
}

// Execute validates the raw recommendations, runs the integration pipeline
// and archives the result.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	recommendations, warnings := h.validateRecommendations(input.Recommendations)

	result, err := h.engine.Run(ctx, &orchestrator.RunInput{
		UserID:          input.UserID,
		Recommendations: recommendations,
		Goals:           input.Goals,
	})
	if err != nil {
		return nil, err
	}
	result.Warnings = append(warnings, result.Warnings...)

	output := &Output{UnifiedResult: result}
	if h.archive != nil {
		if err := h.archive.Archive(ctx, result); err != nil {
			// The result is still returned to the workflow; losing the
			// archive copy is not worth failing the run.
			h.logger.Warn("failed to archive result", map[string]interface{}{
				"userId": input.UserID,
				"error":  err,
			})
		} else {
			output.Archived = true
		}
	}

	h.logger.Info("integration run completed", map[string]interface{}{
		"userId":    input.UserID,
		"insights":  len(result.Insights),
		"conflicts": len(result.Conflicts),
		"actions":   len(result.PrioritizedActions),
		"warnings":  len(result.Warnings),
	})
	return output, nil
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to complete job", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err,
		})
	}
}

// validateRecommendations checks each raw payload against the schema and
// decodes the survivors. Rejects become warnings, mirroring how the
// harmonizer handles structurally valid but empty records.
func (h *Handler) validateRecommendations(raw []json.RawMessage) ([]models.Recommendation, []string) {
	recommendations := make([]models.Recommendation, 0, len(raw))
	var warnings []string
	for i, payload := range raw {
		docLoader := gojsonschema.NewBytesLoader(payload)
		validation, err := h.schema.Validate(docLoader)
		if err != nil || !validation.Valid() {
			warnings = append(warnings, schemaWarning(i, validation, err))
			continue
		}
		var rec models.Recommendation
		if err := json.Unmarshal(payload, &rec); err != nil {
			warnings = append(warnings, schemaWarning(i, nil, err))
			continue
		}
		recommendations = append(recommendations, rec)
	}
	return recommendations, warnings
}

func schemaWarning(position int, validation *gojsonschema.Result, err error) string {
	detail := "schema validation failed"
	if err != nil {
		detail = err.Error()
	} else if validation != nil && len(validation.Errors()) > 0 {
		detail = validation.Errors()[0].String()
	}
	return fmt.Sprintf("%s: recommendation %d rejected: %s",
		stderrors.ErrCodeMalformedRecommendation, position, detail)
}
