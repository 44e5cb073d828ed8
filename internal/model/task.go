package model

// SubmissionTask is one reddit submission page to resolve. Duplicate links in a feed
// become distinct tasks.
type SubmissionTask struct {
	URL          string `json:"url"`
	AttemptCount int    `json:"attempt_count"`
}

func NewSubmissionTasks(links []string) []*SubmissionTask {
	tasks := make([]*SubmissionTask, 0, len(links))
	for _, link := range links {
		tasks = append(tasks, &SubmissionTask{URL: link})
	}
	return tasks
}

type FetchStatus int

const (
	FetchSucceeded FetchStatus = iota
	FetchRetryable
	FetchFatal
)

func (fs FetchStatus) String() string {
	return [...]string{"succeeded", "retryable", "fatal"}[fs]
}

// FetchOutcome is the result of a single page fetch. StatusCode is 0 for network errors.
type FetchOutcome struct {
	Status     FetchStatus
	StatusCode int
	Body       []byte
	Err        error
}
