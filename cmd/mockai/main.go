// Command mockai runs a stand-in clinical AI service for local development
// and demos. It scores keyword matches against a small diagnosis table and
// returns a summary with an ICD-10 code.
package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

type diagnosis struct {
	Keywords   []string
	Summary    string
	Code       string
	Label      string
	Confidence float64
}

var diagnoses = []diagnosis{
	{
		Keywords:   []string{"cough", "fever", "chest", "infiltrate", "pneumonia", "respiratory", "lung"},
		Summary:    "Pneumonia with respiratory symptoms and radiological findings consistent with lower respiratory tract infection",
		Code:       "J18.9",
		Label:      "Pneumonia, unspecified organism",
		Confidence: 0.92,
	},
	{
		Keywords:   []string{"blood pressure", "hypertension", "bp", "elevated pressure", "htn", "systolic", "diastolic"},
		Summary:    "Essential hypertension without complications",
		Code:       "I10",
		Label:      "Essential (primary) hypertension",
		Confidence: 0.88,
	},
	{
		Keywords:   []string{"diabetes", "glucose", "blood sugar", "glycemia", "a1c", "hyperglycemia"},
		Summary:    "Type 2 diabetes mellitus without complications",
		Code:       "E11.9",
		Label:      "Type 2 diabetes mellitus without complications",
		Confidence: 0.90,
	},
	{
		Keywords:   []string{"cold", "runny nose", "sore throat", "uri", "upper respiratory", "congestion"},
		Summary:    "Acute upper respiratory infection, likely viral etiology",
		Code:       "J06.9",
		Label:      "Acute upper respiratory infection, unspecified",
		Confidence: 0.85,
	},
	{
		Keywords:   []string{"copd", "emphysema", "chronic bronchitis", "shortness of breath", "dyspnea", "wheezing"},
		Summary:    "Chronic obstructive pulmonary disease with acute exacerbation",
		Code:       "J44.0",
		Label:      "COPD with acute lower respiratory infection",
		Confidence: 0.87,
	},
	{
		Keywords:   []string{"sepsis", "infection", "septic", "bacteremia", "systemic infection"},
		Summary:    "Sepsis, unspecified organism, requires immediate intervention",
		Code:       "A41.9",
		Label:      "Sepsis, unspecified organism",
		Confidence: 0.91,
	},
	{
		Keywords:   []string{"heartburn", "reflux", "gerd", "acid", "esophagus", "regurgitation"},
		Summary:    "Gastro-esophageal reflux disease without esophagitis",
		Code:       "K21.9",
		Label:      "Gastro-esophageal reflux disease without esophagitis",
		Confidence: 0.83,
	},
	{
		Keywords:   []string{"back pain", "lumbar", "spine", "lower back", "lbp"},
		Summary:    "Low back pain, likely musculoskeletal origin",
		Code:       "M54.5",
		Label:      "Low back pain",
		Confidence: 0.79,
	},
	{
		Keywords:   []string{"anxiety", "panic", "worry", "stress", "nervous", "gad"},
		Summary:    "Generalized anxiety disorder",
		Code:       "F41.1",
		Label:      "Generalized anxiety disorder",
		Confidence: 0.82,
	},
	{
		Keywords:   []string{"depression", "depressed", "sad", "mdd", "major depressive"},
		Summary:    "Major depressive disorder, single episode",
		Code:       "F32.9",
		Label:      "Major depressive disorder, single episode, unspecified",
		Confidence: 0.84,
	},
	{
		Keywords:   []string{"fever", "febrile", "temperature", "pyrexia"},
		Summary:    "Fever of unknown origin, requires further evaluation",
		Code:       "R50.9",
		Label:      "Fever, unspecified",
		Confidence: 0.75,
	},
}

type summaryRequest struct {
	Text string `json:"text"`
}

type icd10Result struct {
	Code  string `json:"code"`
	Label string `json:"label"`
}

type summaryResponse struct {
	Summary          string      `json:"summary"`
	ICD10            icd10Result `json:"icd10"`
	Confidence       float64     `json:"confidence"`
	ProcessingTimeMs int         `json:"processing_time_ms"`
}

// summarize picks the diagnosis with the most keyword hits. Fewer than two
// hits falls back to a generic "illness, unspecified" response.
func summarize(text string) summaryResponse {
	lower := strings.ToLower(text)

	var best *diagnosis
	bestScore := 0.0
	for i := range diagnoses {
		d := &diagnoses[i]
		matches := 0
		for _, kw := range d.Keywords {
			if strings.Contains(lower, kw) {
				matches++
			}
		}
		score := float64(matches)
		if matches > 2 {
			score += 0.1 * float64(matches)
		}
		if score > bestScore {
			bestScore = score
			best = d
		}
	}

	if best != nil && bestScore >= 2 {
		confidence := best.Confidence + bestScore*0.02
		if confidence > 0.95 {
			confidence = 0.95
		}
		return summaryResponse{
			Summary:          best.Summary,
			ICD10:            icd10Result{Code: best.Code, Label: best.Label},
			Confidence:       confidence,
			ProcessingTimeMs: 234,
		}
	}

	return summaryResponse{
		Summary:          "Clinical presentation documented. Further evaluation and assessment recommended to establish definitive diagnosis.",
		ICD10:            icd10Result{Code: "R69", Label: "Illness, unspecified"},
		Confidence:       0.50,
		ProcessingTimeMs: 156,
	}
}

func handleClinicalSummary(c echo.Context) error {
	var req summaryRequest
	if err := c.Bind(&req); err != nil || req.Text == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Missing required field: text"})
	}
	if len(req.Text) < 10 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Text too short (minimum 10 characters)"})
	}
	if len(req.Text) > 10000 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Text too long (maximum 10000 characters)"})
	}

	time.Sleep(200 * time.Millisecond)
	return c.JSON(http.StatusOK, summarize(req.Text))
}

func main() {
	addr := flag.String("addr", ":5001", "listen address")
	flag.Parse()

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	e.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]any{
			"service": "fieldbridge mock AI service",
			"version": "1.0.0",
			"endpoints": map[string]string{
				"clinical_summary": "/api/clinical_summary (POST)",
				"health":           "/health",
			},
		})
	})
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "healthy", "service": "mockai"})
	})
	e.POST("/api/clinical_summary", handleClinicalSummary)

	if err := e.Start(*addr); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
