// internal/model/model.go
package model

import "time"

// Branch attribution labels used when a discovery strategy cannot name a
// single branch.
const (
	BranchMultiple = "multiple"
	BranchUnknown  = "unknown"
)

// Project represents a project from a provider.
type Project struct {
	ID                int       `json:"id"`
	Name              string    `json:"name"`
	Path              string    `json:"path,omitempty"`
	PathWithNamespace string    `json:"path_with_namespace,omitempty"`
	NameWithNamespace string    `json:"name_with_namespace,omitempty"`
	Description       string    `json:"description,omitempty"`
	WebURL            string    `json:"web_url,omitempty"`
	CloneURL          string    `json:"clone_url,omitempty"`
	DefaultBranch     string    `json:"default_branch,omitempty"`
	Visibility        string    `json:"visibility,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	LastActivityAt    time.Time `json:"last_activity_at"`
	Archived          bool      `json:"archived,omitempty"`
}

// Branch is a named ref of a project.
type Branch struct {
	Name      string `json:"name"`
	Protected bool   `json:"protected"`
	Default   bool   `json:"default,omitempty"`
}

// Commit is an upstream commit plus the branch attribution assigned by the
// strategy that discovered it. BranchName and RefName are not intrinsic to
// the commit.
type Commit struct {
	ID           string    `json:"id"`
	ShortID      string    `json:"short_id"`
	Title        string    `json:"title"`
	Message      string    `json:"message"`
	AuthorName   string    `json:"author_name"`
	AuthorEmail  string    `json:"author_email"`
	AuthoredDate time.Time `json:"authored_date"`
	CreatedAt    time.Time `json:"created_at"`
	BranchName   string    `json:"branch_name,omitempty"`
	RefName      string    `json:"ref_name,omitempty"`
}

// Attribution returns the branch a commit is counted under.
func (c Commit) Attribution() string {
	if c.BranchName != "" {
		return c.BranchName
	}
	if c.RefName != "" {
		return c.RefName
	}
	return BranchUnknown
}

// Attribute sets both attribution fields when they are empty.
func (c *Commit) Attribute(branch string) {
	if c.RefName == "" {
		c.RefName = branch
	}
	if c.BranchName == "" {
		c.BranchName = branch
	}
}

// FileDiff is one file entry of a commit diff.
type FileDiff struct {
	OldPath     string `json:"old_path"`
	NewPath     string `json:"new_path"`
	Diff        string `json:"diff"`
	NewFile     bool   `json:"new_file,omitempty"`
	DeletedFile bool   `json:"deleted_file,omitempty"`
	RenamedFile bool   `json:"renamed_file,omitempty"`
}

// Path returns the path the diff is reported under.
func (f FileDiff) Path() string {
	if f.NewPath != "" {
		return f.NewPath
	}
	if f.OldPath != "" {
		return f.OldPath
	}
	return "unknown"
}

// DiffStat holds added and removed line counts split by category.
type DiffStat struct {
	Additions         int64 `json:"additions"`
	Deletions         int64 `json:"deletions"`
	AdditionsCode     int64 `json:"additions_code"`
	DeletionsCode     int64 `json:"deletions_code"`
	AdditionsComments int64 `json:"additions_comments"`
	DeletionsComments int64 `json:"deletions_comments"`
	AdditionsBlank    int64 `json:"additions_blank"`
	DeletionsBlank    int64 `json:"deletions_blank"`
}

// Add accumulates other into s.
func (s *DiffStat) Add(other DiffStat) {
	s.Additions += other.Additions
	s.Deletions += other.Deletions
	s.AdditionsCode += other.AdditionsCode
	s.DeletionsCode += other.DeletionsCode
	s.AdditionsComments += other.AdditionsComments
	s.DeletionsComments += other.DeletionsComments
	s.AdditionsBlank += other.AdditionsBlank
	s.DeletionsBlank += other.DeletionsBlank
}

// IsZero reports whether no line was added or removed.
func (s DiffStat) IsZero() bool {
	return s.Additions == 0 && s.Deletions == 0
}

// FileLines holds whole-file line counts.
type FileLines struct {
	Total   int64 `json:"total_lines"`
	Code    int64 `json:"code_lines"`
	Comment int64 `json:"comment_lines"`
	Blank   int64 `json:"blank_lines"`
}

// BranchStat holds one author's totals on one branch.
type BranchStat struct {
	Commits int64 `json:"commits"`
	DiffStat
}

// DeveloperStat holds cumulative contribution totals for one author,
// keyed by email.
type DeveloperStat struct {
	Name             string                 `json:"name"`
	Email            string                 `json:"email"`
	Commits          int64                  `json:"commits"`
	AnalyzedCommits  int64                  `json:"analyzed_commits"`
	EstimatedCommits int64                  `json:"estimated_commits"`
	Branches         map[string]*BranchStat `json:"branches"`
	DiffStat
}

// NewDeveloperStat returns a DeveloperStat with all counters at zero.
func NewDeveloperStat(name, email string) *DeveloperStat {
	return &DeveloperStat{
		Name:     name,
		Email:    email,
		Branches: make(map[string]*BranchStat),
	}
}

// Branch returns the per-branch accumulator, creating it on first use.
func (d *DeveloperStat) Branch(name string) *BranchStat {
	b, ok := d.Branches[name]
	if !ok {
		b = &BranchStat{}
		d.Branches[name] = b
	}
	return b
}

// LanguageStats holds changed lines for a single language.
type LanguageStats struct {
	Name      string `json:"name"`
	Files     int64  `json:"files"`
	Additions int64  `json:"additions"`
	Deletions int64  `json:"deletions"`
}

// FileChurn holds churn metrics for a single file.
type FileChurn struct {
	Path      string `json:"path"`
	Changes   int64  `json:"changes"`
	Additions int64  `json:"additions"`
	Deletions int64  `json:"deletions"`
}

// Window is the resolved date range of an aggregation.
type Window struct {
	Since     string `json:"since"`
	Until     string `json:"until"`
	Defaulted bool   `json:"defaulted,omitempty"`
}

// Report is the result of one developer statistics aggregation.
type Report struct {
	GeneratedAt      string          `json:"generated_at"`
	Provider         string          `json:"provider,omitempty"`
	Project          *Project        `json:"project,omitempty"`
	Window           Window          `json:"window"`
	TotalCommits     int64           `json:"total_commits"`
	AnalyzedCommits  int64           `json:"analyzed_commits"`
	EstimatedCommits int64           `json:"estimated_commits"`
	SkippedCommits   int64           `json:"skipped_commits,omitempty"`
	Developers       []DeveloperStat `json:"developers"`
	Totals           DiffStat        `json:"totals"`
	ByLanguage       []LanguageStats `json:"by_language,omitempty"`
	TopFiles         []FileChurn     `json:"top_files,omitempty"`
	Errors           []string        `json:"errors,omitempty"`
	// Degraded is set when upstream failures shaped the numbers: the
	// commit lookup failed or real diffs were replaced by estimates.
	Degraded bool `json:"degraded,omitempty"`
}

// Cacheable reports whether r may be kept for reuse. Degraded reports are
// rebuilt on the next request.
func (r Report) Cacheable() bool {
	return !r.Degraded
}

// PeriodReport holds the developer statistics of one trend period.
type PeriodReport struct {
	Period string `json:"period"`
	Report Report `json:"report"`
}

// TrendsReport is the top-level output for per-period statistics.
type TrendsReport struct {
	GeneratedAt string         `json:"generated_at"`
	Project     *Project       `json:"project,omitempty"`
	Since       string         `json:"since"`
	Until       string         `json:"until"`
	Interval    string         `json:"interval"`
	Periods     []PeriodReport `json:"periods"`
}

// HealthCategory classifies a project's activity level.
type HealthCategory string

const (
	HealthActive     HealthCategory = "active"
	HealthMaintained HealthCategory = "maintained"
	HealthAbandoned  HealthCategory = "abandoned"
	HealthUnknown    HealthCategory = "unknown"
)

// ProjectHealth holds the activity classification for a project.
type ProjectHealth struct {
	Category         HealthCategory `json:"category"`
	LastActivityDate string         `json:"last_activity_date,omitempty"`
	DaysSinceActive  int            `json:"days_since_active"`
}

// HealthBucket counts the projects of one health category.
type HealthBucket struct {
	Projects int     `json:"projects"`
	Percent  float64 `json:"percent"`
}

// HealthSummary aggregates project health across a listing.
type HealthSummary struct {
	Active     HealthBucket `json:"active"`
	Maintained HealthBucket `json:"maintained"`
	Abandoned  HealthBucket `json:"abandoned"`
	Unknown    HealthBucket `json:"unknown"`
}

// ProjectSummary is a project listing entry.
type ProjectSummary struct {
	Project
	Health ProjectHealth `json:"health"`
}

// CompositionLanguage holds code statistics for a single language of a
// checked-out tree.
type CompositionLanguage struct {
	Name       string `json:"name"`
	Files      int64  `json:"files"`
	Lines      int64  `json:"lines"`
	Code       int64  `json:"code"`
	Comments   int64  `json:"comments"`
	Blanks     int64  `json:"blanks"`
	Complexity int64  `json:"complexity"`
}

// Composition holds the size baseline of a project's default branch.
type Composition struct {
	Project   string                `json:"project"`
	Branch    string                `json:"branch,omitempty"`
	License   string                `json:"license,omitempty"`
	Languages []CompositionLanguage `json:"languages"`
	Totals    CompositionLanguage   `json:"totals"`
}
