package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/legalclear/backend/model"
	"golang.org/x/sync/errgroup"
)

// promptTextLimit caps the document text sent to the language model.
const promptTextLimit = 4000

// legalTermsDB maps common legal terms to plain-English definitions, used as
// a fallback when the language model is unavailable.
var legalTermsDB = map[string]string{
	"at-will employment":        "Either party can terminate the employment relationship at any time, for any reason, with or without notice.",
	"confidentiality agreement": "A legal agreement that prohibits sharing sensitive business information with unauthorized parties.",
	"non-compete clause":        "A restriction preventing an employee from working for competitors or starting a competing business for a specified period.",
	"intellectual property":     "Creations of the mind, such as inventions, literary works, designs, and symbols used in commerce.",
	"force majeure":             "Unforeseeable circumstances that prevent a party from fulfilling a contract, such as natural disasters or war.",
	"indemnification":           "Protection against legal liability, where one party agrees to compensate another for losses or damages.",
	"liquidated damages":        "A predetermined amount of compensation agreed upon in advance for specific contract breaches.",
	"arbitration":               "A method of dispute resolution outside the courts, where an arbitrator makes a binding decision.",
	"jurisdiction":              "The authority of a court to hear and decide a case, typically based on geographic location.",
	"severability":              "If one part of a contract is invalid, the rest of the contract remains enforceable.",
	"warranty":                  "A promise or guarantee about the quality, condition, or performance of a product or service.",
	"breach of contract":        "Failure to perform any duty or obligation specified in a contract without legal excuse.",
}

// riskPatterns maps risk categories to the keywords that trigger them.
var riskPatterns = map[string][]string{
	"overly broad non-compete":      {"non-compete", "compete", "competitor", "indefinite", "unlimited"},
	"vague compensation terms":      {"bonus", "commission", "discretionary", "variable pay", "may receive"},
	"unfair termination clauses":    {"immediate termination", "without cause", "at company discretion"},
	"excessive liability":           {"unlimited liability", "personal guarantee", "hold harmless"},
	"unclear intellectual property": {"work product", "inventions", "intellectual property", "unclear ownership"},
}

// riskFlagDetails describes the red flag reported for each risk category.
var riskFlagDetails = map[string]model.RedFlag{
	"overly broad non-compete": {
		Issue:       "Broad Non-Compete Clause",
		Explanation: "The non-compete restrictions appear extensive and may limit future employment opportunities.",
		Severity:    model.LevelMedium,
	},
	"vague compensation terms": {
		Issue:       "Unclear Compensation Structure",
		Explanation: "Payment terms lack specificity, which could lead to disputes over compensation.",
		Severity:    model.LevelMedium,
	},
	"unfair termination clauses": {
		Issue:       "Unfavorable Termination Terms",
		Explanation: "Termination conditions appear to heavily favor one party over the other.",
		Severity:    model.LevelHigh,
	},
	"excessive liability": {
		Issue:       "Excessive Liability Exposure",
		Explanation: "The document may expose you to significant financial liability beyond reasonable limits.",
		Severity:    model.LevelHigh,
	},
	"unclear intellectual property": {
		Issue:       "Ambiguous IP Ownership",
		Explanation: "Intellectual property ownership rights are not clearly defined, which could cause future disputes.",
		Severity:    model.LevelMedium,
	},
}

// unfairIndicators are phrases that lower the fairness score.
var unfairIndicators = []string{
	"at company discretion",
	"sole discretion",
	"unlimited liability",
	"without notice",
	"immediate termination",
	"forfeiture",
	"waive all rights",
	"indemnify company",
	"hold harmless",
}

var sentenceEndRe = regexp.MustCompile(`[.!?]+`)

// Analyzer produces a structured analysis of a document, using the language
// model for summaries, key terms, red flags and simplified sections, with
// keyword heuristics as fallback when the model is unavailable.
type Analyzer struct {
	llm Collaborator
}

func NewAnalyzer(llm Collaborator) *Analyzer {
	return &Analyzer{llm: llm}
}

// Analyze runs the full analysis. The language model calls run concurrently;
// individual call failures fall back to heuristics, but a cancelled or timed
// out context aborts the whole analysis with ErrAnalysisFailed.
func (a *Analyzer) Analyze(ctx context.Context, doc *model.Document) (*model.Analysis, error) {
	text := doc.ContentText

	readability := readabilityScore(text)
	fairness := fairnessScore(text)
	overall := round1((readability + fairness) / 2)

	summary := "Summary not available."
	keyTerms := extractKeyTerms(text)
	redFlags := identifyRedFlags(text)
	sectionTemplates := simplifiedSectionTemplates(doc.DocumentType)
	sections := make([]model.SimplifiedSection, len(sectionTemplates))
	for i, tpl := range sectionTemplates {
		sections[i] = model.SimplifiedSection{Title: tpl.title, Content: "Summary not available.", Order: i + 1}
	}

	if a.llm != nil {
		g, gctx := errgroup.WithContext(ctx)

		g.Go(func() error {
			prompt := "Summarize the main points and implications of the following legal document in plain English. Use markdown for formatting where appropriate.\n\nDocument:\n" + capText(text)
			result, err := a.llm.GenerateContent(gctx, prompt)
			if err != nil {
				return gctx.Err()
			}
			summary = result
			return nil
		})

		g.Go(func() error {
			prompt := "Extract and list the 3-5 most important legal terms or concepts from the following document. For each, provide:\n- term\n- definition (plain English)\n- importance (high, medium, low)\n- location (if possible)\nReturn as a JSON array of objects.\n\nDocument:\n" + capText(text)
			result, err := a.llm.GenerateContent(gctx, prompt)
			if err != nil {
				return gctx.Err()
			}
			var terms []model.KeyTerm
			if err := json.Unmarshal([]byte(stripCodeFence(result)), &terms); err == nil && len(terms) > 0 {
				keyTerms = terms
			}
			return nil
		})

		g.Go(func() error {
			prompt := "Identify up to 3 key risks, red flags, or problematic clauses in the following document. For each, provide:\n- issue (short title)\n- explanation (plain English)\n- severity (high, medium, low)\nReturn as a JSON array of objects.\n\nDocument:\n" + capText(text)
			result, err := a.llm.GenerateContent(gctx, prompt)
			if err != nil {
				return gctx.Err()
			}
			var flags []model.RedFlag
			if err := json.Unmarshal([]byte(stripCodeFence(result)), &flags); err == nil && len(flags) > 0 {
				redFlags = flags
			}
			return nil
		})

		for i := range sectionTemplates {
			i := i
			g.Go(func() error {
				prompt := sectionTemplates[i].prompt + "\n\nDocument:\n" + capText(text)
				result, err := a.llm.GenerateContent(gctx, prompt)
				if err != nil {
					return gctx.Err()
				}
				sections[i].Content = result
				return nil
			})
		}

		if err := g.Wait(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrAnalysisFailed, err)
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAnalysisFailed, err)
	}

	return &model.Analysis{
		ID:                 uuid.New().String(),
		DocumentID:         doc.ID,
		OverallScore:       overall,
		ReadabilityScore:   round1(readability),
		FairnessScore:      round1(fairness),
		RiskLevel:          riskLevelFor(overall),
		Complexity:         documentComplexity(text),
		EstimatedReadTime:  EstimateReadTime(text),
		Summary:            summary,
		TopConcerns:        topConcerns(redFlags),
		Recommendations:    recommendations(redFlags),
		KeyTerms:           keyTerms,
		RedFlags:           redFlags,
		SimplifiedSections: sections,
		AnalysisDate:       time.Now(),
	}, nil
}

// readabilityScore scores how easy the text is to read, 1 to 10. Long
// sentences and long words lower the score.
func readabilityScore(text string) float64 {
	if text == "" {
		return 5.0
	}

	words := strings.Fields(text)
	wordCount := len(words)
	sentenceCount := len(sentenceEndRe.FindAllString(text, -1))

	if wordCount == 0 || sentenceCount == 0 {
		return 5.0
	}

	avgSentenceLength := float64(wordCount) / float64(sentenceCount)
	totalWordLength := 0
	for _, w := range words {
		totalWordLength += len(w)
	}
	avgWordLength := float64(totalWordLength) / float64(wordCount)

	baseScore := 10.0
	sentencePenalty := math.Max(0, (avgSentenceLength-15)*0.1)
	wordPenalty := math.Max(0, (avgWordLength-5)*0.3)

	score := math.Max(1.0, baseScore-sentencePenalty-wordPenalty)
	return math.Min(10.0, score)
}

// fairnessScore scores how balanced the terms are, 1 to 10. Each unfair
// indicator found costs half a point from a base of 9.
func fairnessScore(text string) float64 {
	if text == "" {
		return 7.0
	}

	textLower := strings.ToLower(text)
	unfairCount := 0
	for _, indicator := range unfairIndicators {
		if strings.Contains(textLower, indicator) {
			unfairCount++
		}
	}

	return math.Max(1.0, 9.0-float64(unfairCount)*0.5)
}

func riskLevelFor(overallScore float64) string {
	switch {
	case overallScore >= 8.0:
		return model.LevelLow
	case overallScore >= 6.0:
		return model.LevelMedium
	default:
		return model.LevelHigh
	}
}

// documentComplexity rates the document by length and legal-term density.
func documentComplexity(text string) string {
	if text == "" {
		return model.LevelLow
	}

	wordCount := len(strings.Fields(text))
	textLower := strings.ToLower(text)
	termCount := 0
	for term := range legalTermsDB {
		if strings.Contains(textLower, term) {
			termCount++
		}
	}

	switch {
	case wordCount > 5000 || termCount > 10:
		return model.LevelHigh
	case wordCount > 2000 || termCount > 5:
		return model.LevelMedium
	default:
		return model.LevelLow
	}
}

// AnalyzeComplexity rates text complexity from word and sentence length. Used
// on the document read path before a full analysis exists.
func AnalyzeComplexity(text string) string {
	if text == "" {
		return model.LevelLow
	}

	words := strings.Fields(text)
	wordCount := len(words)
	if wordCount == 0 {
		return model.LevelLow
	}

	totalWordLength := 0
	for _, w := range words {
		totalWordLength += len(w)
	}
	avgWordLength := float64(totalWordLength) / float64(wordCount)

	sentenceCount := len(sentenceEndRe.FindAllString(text, -1))
	avgSentenceLength := 0.0
	if sentenceCount > 0 {
		avgSentenceLength = float64(wordCount) / float64(sentenceCount)
	}

	switch {
	case avgWordLength > 6 && avgSentenceLength > 25:
		return model.LevelHigh
	case avgWordLength > 5 && avgSentenceLength > 15:
		return model.LevelMedium
	default:
		return model.LevelLow
	}
}

// EstimateReadTime estimates reading time at 200 words per minute.
func EstimateReadTime(text string) string {
	wordCount := len(strings.Fields(text))
	minutes := wordCount / 200
	if minutes < 1 {
		minutes = 1
	}
	return fmt.Sprintf("%d minutes", minutes)
}

// GenerateSummary returns a short type-specific summary used on the list and
// read paths before the full analysis is available.
func GenerateSummary(text, docType string) string {
	if text == "" {
		return "Document uploaded successfully. Analysis pending."
	}

	wordCount := len(strings.Fields(text))

	switch docType {
	case model.TypeContract:
		return fmt.Sprintf("This contract contains %d words covering terms, conditions, responsibilities, and legal obligations. Key areas include compensation, duties, termination, and compliance requirements.", wordCount)
	case model.TypeLease:
		return fmt.Sprintf("This lease agreement spans %d words detailing rental terms, tenant responsibilities, property conditions, and legal obligations for both parties.", wordCount)
	case model.TypeLoan:
		return fmt.Sprintf("This loan agreement contains %d words outlining borrowing terms, repayment schedules, interest rates, and default conditions.", wordCount)
	case model.TypeNDA:
		return fmt.Sprintf("This non-disclosure agreement has %d words covering confidentiality obligations, permitted disclosures, and legal consequences of breaches.", wordCount)
	case model.TypeTerms:
		return fmt.Sprintf("These terms of service contain %d words governing platform usage, user rights, service limitations, and legal compliance requirements.", wordCount)
	default:
		return fmt.Sprintf("This legal document contains %d words covering various legal provisions, rights, obligations, and procedural requirements.", wordCount)
	}
}

// extractKeyTerms finds known legal terms in the text, up to five.
func extractKeyTerms(text string) []model.KeyTerm {
	textLower := strings.ToLower(text)
	var found []model.KeyTerm

	for term, definition := range legalTermsDB {
		if !strings.Contains(textLower, term) {
			continue
		}
		importance := model.LevelMedium
		switch term {
		case "non-compete clause", "confidentiality agreement", "at-will employment":
			importance = model.LevelHigh
		}
		found = append(found, model.KeyTerm{
			Term:       titleCase(term),
			Definition: definition,
			Importance: importance,
			Location:   "Various sections",
		})
		if len(found) == 5 {
			break
		}
	}

	if len(found) == 0 {
		found = append(found, model.KeyTerm{
			Term:       "Legal Obligations",
			Definition: "Duties and responsibilities that must be performed as specified in this document.",
			Importance: model.LevelMedium,
			Location:   "Various sections",
		})
	}

	return found
}

// identifyRedFlags matches risk keyword patterns in the text, up to three.
func identifyRedFlags(text string) []model.RedFlag {
	textLower := strings.ToLower(text)
	var flags []model.RedFlag

	for riskType, keywords := range riskPatterns {
		for _, keyword := range keywords {
			if strings.Contains(textLower, keyword) {
				flags = append(flags, riskFlagDetails[riskType])
				break
			}
		}
		if len(flags) == 3 {
			break
		}
	}

	return flags
}

func topConcerns(redFlags []model.RedFlag) []string {
	concerns := make([]string, 0, 3)
	for _, flag := range redFlags {
		concerns = append(concerns, flag.Issue)
	}

	general := []string{
		"Document complexity may require legal review",
		"Some terms may benefit from clarification",
		"Consider professional legal advice for important decisions",
	}
	for _, c := range general {
		if len(concerns) >= 3 {
			break
		}
		concerns = append(concerns, c)
	}

	if len(concerns) > 3 {
		concerns = concerns[:3]
	}
	return concerns
}

func recommendations(redFlags []model.RedFlag) []string {
	recs := make([]string, 0, 3)
	for _, flag := range redFlags {
		issue := strings.ToLower(flag.Issue)
		switch {
		case strings.Contains(issue, "non-compete"):
			recs = append(recs, "Negotiate to reduce the scope or duration of non-compete restrictions")
		case strings.Contains(issue, "compensation"):
			recs = append(recs, "Request more specific details about payment terms and calculation methods")
		case strings.Contains(issue, "termination"):
			recs = append(recs, "Seek to add more balanced termination provisions")
		case strings.Contains(issue, "liability"):
			recs = append(recs, "Consider requesting liability caps or insurance provisions")
		case strings.Contains(issue, "ip ownership"), strings.Contains(issue, "intellectual property"):
			recs = append(recs, "Clarify ownership rights for intellectual property created")
		}
	}

	general := []string{
		"Consider consulting with a legal professional for complex terms",
		"Document any verbal agreements or understandings in writing",
		"Keep copies of all signed documents for your records",
	}
	for _, r := range general {
		if len(recs) >= 3 {
			break
		}
		recs = append(recs, r)
	}

	if len(recs) > 3 {
		recs = recs[:3]
	}
	return recs
}

type sectionTemplate struct {
	title  string
	prompt string
}

func simplifiedSectionTemplates(docType string) []sectionTemplate {
	switch docType {
	case model.TypeContract:
		return []sectionTemplate{
			{"Your Job & Pay", "Summarize the section(s) about job duties, pay, and benefits in plain English."},
			{"Rules & Restrictions", "Summarize the section(s) about rules, restrictions, and non-compete clauses in plain English."},
			{"How Employment Can End", "Summarize the section(s) about termination, notice, and what happens when employment ends in plain English."},
		}
	case model.TypeLease:
		return []sectionTemplate{
			{"Rent & Payments", "Summarize the section(s) about rent, payment schedule, and fees in plain English."},
			{"Your Responsibilities", "Summarize the section(s) about tenant responsibilities and property care in plain English."},
			{"Ending the Lease", "Summarize the section(s) about ending the lease, notice, and penalties in plain English."},
		}
	default:
		return []sectionTemplate{
			{"Main Terms", "Summarize the main requirements and obligations in this document in plain English."},
			{"Rights & Restrictions", "Summarize the rights and restrictions for both parties in plain English."},
			{"Legal Consequences", "Summarize what happens if someone breaks the agreement, including penalties or legal actions, in plain English."},
		}
	}
}

// capText truncates the text for prompting, cutting on a rune boundary so a
// multi-byte character is never split.
func capText(text string) string {
	if len(text) <= promptTextLimit {
		return text
	}
	cut := promptTextLimit
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut]
}

// stripCodeFence removes a surrounding markdown code fence from a model reply.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		if len(w) > 0 {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
