package workflow

import (
	"fmt"

	"github.com/google/uuid"
)

// Prebuilt step helpers for common pipeline shapes. These mirror the
// agent roles the server ships with (research_assistant, content_creator,
// qa_specialist, code_assistant, data_analyst).

// AddResearchStep appends a research step against the research assistant.
func (w *Workflow) AddResearchStep(topic string) *Workflow {
	return w.AddStep("research", "research_assistant",
		fmt.Sprintf("Research the latest information about: %s. Provide comprehensive and accurate information.", topic),
		WithTemperature(0.3), WithMaxTokens(1200))
}

// AddWritingStep appends a content writing step.
func (w *Workflow) AddWritingStep(contentType string) *Workflow {
	if contentType == "" {
		contentType = "article"
	}
	return w.AddStep("write_content", "content_creator",
		fmt.Sprintf("Based on the research, write a professional %s. Make it engaging and well-structured.", contentType),
		WithTemperature(0.7), WithMaxTokens(1500))
}

// AddReviewStep appends a quality review step using the text_processing
// function rather than plain inference.
func (w *Workflow) AddReviewStep(criteria string) *Workflow {
	if criteria == "" {
		criteria = "accuracy, clarity, tone"
	}
	return w.AddStep("review", "qa_specialist",
		fmt.Sprintf("Review the content for: %s. Provide constructive feedback and suggestions.", criteria),
		WithFunction("text_processing"),
		WithParameters(map[string]any{"operation": "quality_review", "criteria": criteria}))
}

// AddCodeGenerationStep appends a code generation step.
func (w *Workflow) AddCodeGenerationStep(requirements, language string) *Workflow {
	if language == "" {
		language = "python"
	}
	return w.AddStep("generate_code", "code_assistant",
		fmt.Sprintf("Generate %s code for: %s. Include proper error handling and documentation.", language, requirements),
		WithTemperature(0.2), WithMaxTokens(1500))
}

// templateID returns the given id, or a fresh unique id derived from the
// template prefix so repeated template runs never collide on the remote
// store.
func templateID(id, prefix string) string {
	if id != "" {
		return id
	}
	return fmt.Sprintf("%s_%s", prefix, uuid.NewString()[:8])
}

// NewContentCreation builds the research -> write -> review pipeline.
// Pass an empty workflowID to get a generated one.
func NewContentCreation(workflowID, topic, audience, contentType string) *Workflow {
	if contentType == "" {
		contentType = "article"
	}
	w := New(templateID(workflowID, "content_creation"), "Content Creation Pipeline").
		WithDescription(fmt.Sprintf("Research, write, and review content about %s", topic)).
		WithGlobalContext(map[string]any{
			"topic":        topic,
			"audience":     audience,
			"content_type": contentType,
		})
	return w.AddResearchStep(topic).AddWritingStep(contentType).AddReviewStep("")
}

// NewCodeDevelopment builds the generate -> review -> document pipeline.
func NewCodeDevelopment(workflowID, requirements, language string) *Workflow {
	if language == "" {
		language = "python"
	}
	w := New(templateID(workflowID, "code_development"), "Code Development Pipeline").
		WithDescription(fmt.Sprintf("Generate, review, and document %s code", language)).
		WithGlobalContext(map[string]any{
			"requirements": requirements,
			"language":     language,
		})
	w.AddCodeGenerationStep(requirements, language)
	w.AddReviewStep("code quality, security, best practices")
	w.AddStep("document", "content_creator",
		fmt.Sprintf("Create comprehensive documentation for the %s code including usage examples and API reference", language),
		WithTemperature(0.3))
	return w
}

// NewDataAnalysis builds the prepare -> analyze -> insights pipeline.
func NewDataAnalysis(workflowID, dataDescription, analysisType string) *Workflow {
	if analysisType == "" {
		analysisType = "statistical summary"
	}
	w := New(templateID(workflowID, "data_analysis"), "Data Analysis Pipeline").
		WithDescription(fmt.Sprintf("Analyze %s and generate insights", dataDescription)).
		WithGlobalContext(map[string]any{
			"data_description": dataDescription,
			"analysis_type":    analysisType,
		})
	w.AddStep("prepare_data", "data_analyst",
		fmt.Sprintf("Prepare and validate the %s for %s", dataDescription, analysisType),
		WithFunction("data_analysis"),
		WithParameters(map[string]any{"operation": "data_preparation"}))
	w.AddStep("analyze", "data_analyst",
		fmt.Sprintf("Perform %s on the prepared data", analysisType),
		WithFunction("data_analysis"),
		WithParameters(map[string]any{"operation": "statistical_analysis"}))
	w.AddStep("generate_insights", "research_assistant",
		fmt.Sprintf("Based on the %s results, generate key insights and actionable recommendations", analysisType),
		WithTemperature(0.4))
	return w
}
