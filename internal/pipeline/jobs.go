package pipeline

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dgallion1/docsplit/internal/outline"
	"github.com/dgallion1/docsplit/internal/split"
)

// JobStatus represents the state of a split job.
type JobStatus string

const (
	StatusQueued     JobStatus = "queued"
	StatusTokenizing JobStatus = "tokenizing"
	StatusCleaning   JobStatus = "cleaning"
	StatusScanning   JobStatus = "scanning"
	StatusBuilding   JobStatus = "building"
	StatusPlanning   JobStatus = "planning"
	StatusWriting    JobStatus = "writing"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
)

// Extractor names the source of a job's headings.
type Extractor string

const (
	ExtractGrammar Extractor = "grammar"
	ExtractLLM     Extractor = "llm"
)

// Job tracks the state of a single document split.
type Job struct {
	mu sync.Mutex

	ID        string    `json:"job_id"`
	Family    string    `json:"family"`
	Filename  string    `json:"filename"`
	Title     string    `json:"title"`
	Extractor Extractor `json:"extractor"`
	MaxPages  int       `json:"max_pages,omitempty"`

	Status   JobStatus `json:"status"`
	Phase    string    `json:"phase"`
	Progress Progress  `json:"progress"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Internal: not serialized.
	fileData []byte
	outline  []byte // markdown outline supplied by the caller
	result   *Result
	errors   []string
	done     chan struct{}
}

// Progress tracks processing progress.
type Progress struct {
	Pages          int      `json:"pages"`
	Tokens         int      `json:"tokens"`
	FootersRemoved int      `json:"footers_removed"`
	Headings       int      `json:"headings"`
	Fragments      int      `json:"fragments"`
	Errors         []string `json:"errors"`
}

// Result is what a completed job produced.
type Result struct {
	Outline   outline.Outline
	Tree      *outline.Tree
	Plan      *split.Plan
	Markdown  string
	Artifacts []string
}

// NewJob creates a queued job for one document.
func NewJob(filename, family string, data []byte) *Job {
	now := time.Now()
	return &Job{
		ID:        uuid.NewString(),
		Family:    family,
		Filename:  filename,
		Extractor: ExtractGrammar,
		Status:    StatusQueued,
		Phase:     "queued",
		CreatedAt: now,
		UpdatedAt: now,
		fileData:  data,
		done:      make(chan struct{}),
	}
}

// JobStore is a thread-safe in-memory job registry with TTL eviction.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
}

func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{
		jobs: make(map[string]*Job),
		ttl:  ttl,
	}
}

func (s *JobStore) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

func (s *JobStore) Get(id string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

// Len returns the number of stored jobs.
func (s *JobStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// Cleanup removes finished jobs not updated within the TTL.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		snap := job.Snapshot()
		if snap.Status.Finished() && now.Sub(snap.UpdatedAt) > s.ttl {
			delete(s.jobs, id)
		}
	}
}

// Finished reports whether the status is terminal.
func (s JobStatus) Finished() bool {
	return s == StatusCompleted || s == StatusFailed
}

// SetStatus updates job status atomically.
func (j *Job) SetStatus(status JobStatus, phase string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.Phase = phase
	j.UpdatedAt = time.Now()
}

// AddError records an error.
func (j *Job) AddError(err string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, err)
	j.Progress.Errors = j.errors
	j.UpdatedAt = time.Now()
}

// update applies fn to the progress counters under the job lock.
func (j *Job) update(fn func(p *Progress)) {
	j.mu.Lock()
	defer j.mu.Unlock()
	fn(&j.Progress)
	j.UpdatedAt = time.Now()
}

// SetOutline attaches a markdown outline that replaces heading detection.
func (j *Job) SetOutline(md []byte) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.outline = md
}

// OutlineOverride returns the caller's markdown outline, if any.
func (j *Job) OutlineOverride() []byte {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.outline
}

// FileData returns the raw file bytes.
func (j *Job) FileData() []byte {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.fileData
}

// Result returns the job's output once it has completed, or nil.
func (j *Job) Result() *Result {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.result
}

func (j *Job) finish(status JobStatus, phase string, r *Result) {
	j.mu.Lock()
	j.Status = status
	j.Phase = phase
	j.result = r
	j.fileData = nil
	j.UpdatedAt = time.Now()
	done := j.done
	j.mu.Unlock()
	if done != nil {
		select {
		case <-done:
		default:
			close(done)
		}
	}
}

// Done is closed once the job reaches a terminal status.
func (j *Job) Done() <-chan struct{} {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.done == nil {
		j.done = make(chan struct{})
	}
	return j.done
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID        string    `json:"job_id"`
	Family    string    `json:"family"`
	Filename  string    `json:"filename"`
	Title     string    `json:"title"`
	Extractor Extractor `json:"extractor"`
	Status    JobStatus `json:"status"`
	Phase     string    `json:"phase"`
	Progress  Progress  `json:"progress"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	p := j.Progress
	p.Errors = append([]string{}, j.Progress.Errors...)
	return JobSnapshot{
		ID:        j.ID,
		Family:    j.Family,
		Filename:  j.Filename,
		Title:     j.Title,
		Extractor: j.Extractor,
		Status:    j.Status,
		Phase:     j.Phase,
		Progress:  p,
		CreatedAt: j.CreatedAt,
		UpdatedAt: j.UpdatedAt,
	}
}
