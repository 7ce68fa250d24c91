package file

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/propdocs/internal/core/domain"
	"github.com/custodia-labs/propdocs/internal/core/ports/driven"
	"github.com/custodia-labs/propdocs/internal/logger"
)

var _ driven.PromptStore = (*PromptStore)(nil)

// PromptStore serves prompt templates from text files in a directory,
// seeding it with the built-in defaults on first use. An edited file is
// picked up on the next Load once its modification time changes. A file
// that is missing, unreadable or breaks an analysis template's two %s
// placeholders yields the built-in default.
type PromptStore struct {
	dir string

	seedOnce sync.Once
	seedErr  error

	mu    sync.Mutex
	cache map[string]cachedPrompt
}

type cachedPrompt struct {
	text    string
	modTime time.Time
}

// analysisTemplate wraps a per-type focus list into the shared analysis layout.
// The result expects %s (document title) and %s (document text).
func analysisTemplate(docType domain.DocumentType, focus string) string {
	return "Analyse the " + string(docType) + ` titled "%s".

Focus on:
` + focus + `

Structure the answer with short headed sections. Quote figures, dates and costs exactly
as written. Finish with a prioritised list of items the buyer should follow up on.

Document text:
%s`
}

//nolint:lll // Prompt content is intentionally long and should not be wrapped.
var defaultPrompts = map[string]string{
	driven.PromptChatSystem: `You are a property document assistant. You answer a home buyer's questions using only the document excerpts and property context supplied with each question.

When answering:
1. Cite the documents you rely on by their exact title.
2. If the excerpts do not contain the answer, say so plainly.
3. Quote costs, dates and measurements exactly as they appear.
4. Be concise. Do not give legal or financial advice beyond what the documents state.`,

	driven.PromptAnalysisSystem: `You are an experienced real estate document analyst. You write clear, factual analyses for home buyers. You never invent findings that are not in the document.`,

	driven.AnalysisPromptName(domain.DocumentTypeHomeInspection): analysisTemplate(domain.DocumentTypeHomeInspection,
		"- Roof, foundation, electrical, plumbing and HVAC findings\n- Safety hazards\n- Items marked for repair or further evaluation"),
	driven.AnalysisPromptName(domain.DocumentTypePestInspection): analysisTemplate(domain.DocumentTypePestInspection,
		"- Section 1 and Section 2 findings\n- Evidence of termites, fungus or dry rot\n- Treatment recommendations and cost estimates"),
	driven.AnalysisPromptName(domain.DocumentTypeSellerDisclosure): analysisTemplate(domain.DocumentTypeSellerDisclosure,
		"- Known defects and past repairs\n- Water intrusion, structural or environmental issues\n- Legal disputes, liens or neighbourhood nuisances"),
	driven.AnalysisPromptName(domain.DocumentTypeHOA): analysisTemplate(domain.DocumentTypeHOA,
		"- Dues and special assessments\n- Reserve funding and budget health\n- Rules, restrictions and pending litigation"),
	driven.AnalysisPromptName(domain.DocumentTypeTitleReport): analysisTemplate(domain.DocumentTypeTitleReport,
		"- Vesting and owner of record\n- Liens, judgments and deeds of trust\n- Easements and Schedule B exceptions"),
	driven.AnalysisPromptName(domain.DocumentTypeAppraisal): analysisTemplate(domain.DocumentTypeAppraisal,
		"- Appraised value and reconciliation\n- Comparable sales and adjustments\n- Condition and market trends"),
	driven.AnalysisPromptName(domain.DocumentTypeNaturalHazard): analysisTemplate(domain.DocumentTypeNaturalHazard,
		"- Flood, fire and seismic hazard zones\n- Insurance implications\n- Environmental disclosures"),
	driven.AnalysisPromptName(domain.DocumentTypePurchaseAgreement): analysisTemplate(domain.DocumentTypePurchaseAgreement,
		"- Price, deposit and financing terms\n- Contingencies and removal deadlines\n- Closing date and possession"),
}

// NewPromptStore uses dir, or ~/.propdocs/prompts when dir is empty.
// Nothing touches the disk until the first Load.
func NewPromptStore(dir string) (*PromptStore, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home directory: %w", err)
		}
		dir = filepath.Join(home, ".propdocs", "prompts")
	}
	return &PromptStore{dir: dir, cache: map[string]cachedPrompt{}}, nil
}

// Load returns the template called name.
func (s *PromptStore) Load(name string) (string, error) {
	s.seedOnce.Do(s.seed)

	fallback, known := defaultPrompts[name]
	text, err := s.read(name)
	switch {
	case err != nil && known:
		if s.seedErr == nil && !errors.Is(err, fs.ErrNotExist) {
			logger.Warn("prompt %s: %v; using built-in default", name, err)
		}
		return fallback, nil
	case err != nil:
		return "", fmt.Errorf("load prompt %q: %w", name, err)
	}

	if strings.HasPrefix(name, driven.PromptAnalysisPrefix) && strings.Count(text, "%s") != 2 {
		logger.Warn("prompt %s must contain exactly two %%s placeholders; using built-in default", name)
		if known {
			return fallback, nil
		}
		return "", fmt.Errorf("prompt %q: want two %%s placeholders", name)
	}
	return text, nil
}

// read returns the file's trimmed content, rereading it only when its
// modification time differs from the cached copy.
func (s *PromptStore) read(name string) (string, error) {
	path := s.path(name)
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	c, ok := s.cache[name]
	s.mu.Unlock()
	if ok && c.modTime.Equal(info.ModTime()) {
		return c.text, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(string(data))

	s.mu.Lock()
	s.cache[name] = cachedPrompt{text: text, modTime: info.ModTime()}
	s.mu.Unlock()
	return text, nil
}

// Reload forgets every cached template.
func (s *PromptStore) Reload() {
	s.mu.Lock()
	s.cache = map[string]cachedPrompt{}
	s.mu.Unlock()
}

// Dir returns the prompt directory.
func (s *PromptStore) Dir() string {
	return s.dir
}

func (s *PromptStore) path(name string) string {
	return filepath.Join(s.dir, name+".txt")
}

// seed creates the directory and writes every default and the README
// that does not exist yet. Existing files are never overwritten.
func (s *PromptStore) seed() {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		s.seedErr = fmt.Errorf("create prompt directory: %w", err)
		logger.Warn("prompts: %v; using built-in defaults", s.seedErr)
		return
	}

	files := map[string]string{"README.md": readme()}
	for name, text := range defaultPrompts {
		files[name+".txt"] = text
	}
	for file, text := range files {
		if err := writeIfMissing(filepath.Join(s.dir, file), text); err != nil {
			s.seedErr = err
			logger.Warn("prompts: %v", err)
		}
	}
}

func writeIfMissing(path, content string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if errors.Is(err, fs.ErrExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("create %s: %w", filepath.Base(path), err)
	}
	if _, err := f.WriteString(content); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return f.Close()
}

func readme() string {
	var files strings.Builder
	fmt.Fprintf(&files, "- `%s.txt`: system prompt for cited chat answers\n", driven.PromptChatSystem)
	fmt.Fprintf(&files, "- `%s.txt`: system prompt for deep analysis\n", driven.PromptAnalysisSystem)
	for _, t := range domain.DocumentTypes() {
		if t == domain.DocumentTypeOther {
			continue
		}
		fmt.Fprintf(&files, "- `%s.txt`: analysis of a %s\n", driven.AnalysisPromptName(t), t)
	}

	return "# Prompts\n\n" +
		"propdocs reads its chat and analysis prompts from this directory.\n\n" +
		files.String() +
		"\nEdits take effect on the next request. Delete a file to restore its default.\n\n" +
		"Analysis prompts take two `%s` placeholders, in order: the document title,\n" +
		"then the document text. A prompt without exactly two is ignored.\n"
}
