package models

import "time"

// DefaultVotingPeriod is how long a question stays open when no end date is given.
const DefaultVotingPeriod = 24 * time.Hour

// RecentWindow bounds WasPublishedRecently.
const RecentWindow = 24 * time.Hour

// Field limits
const (
	MaxQuestionTextLen = 200
	MaxChoiceTextLen   = 200
)

// Domain types

type Question struct {
	ID      string    `json:"id"`
	Text    string    `json:"text"`
	PubDate time.Time `json:"pub_date"`
	EndDate time.Time `json:"end_date"`
}

// NewQuestion builds a question, defaulting the end date to one voting
// period after pubDate. The default is computed per question.
func NewQuestion(text string, pubDate time.Time, endDate *time.Time) Question {
	q := Question{
		Text:    text,
		PubDate: pubDate.UTC(),
		EndDate: pubDate.UTC().Add(DefaultVotingPeriod),
	}
	if endDate != nil {
		q.EndDate = endDate.UTC()
	}
	return q
}

// IsPublished reports whether the question is visible at now.
// A question stays published after it ends.
func (q Question) IsPublished(now time.Time) bool {
	return !now.Before(q.PubDate)
}

// CanVote reports whether now lies in [PubDate, EndDate].
func (q Question) CanVote(now time.Time) bool {
	return !now.Before(q.PubDate) && !now.After(q.EndDate)
}

// WasPublishedRecently reports whether PubDate lies in [now-24h, now].
func (q Question) WasPublishedRecently(now time.Time) bool {
	return !q.PubDate.Before(now.Add(-RecentWindow)) && !q.PubDate.After(now)
}

type Choice struct {
	ID         string `json:"id"`
	QuestionID string `json:"question_id"`
	Text       string `json:"text"`
	Votes      int    `json:"votes"`
}

type Vote struct {
	ID         string    `json:"id"`
	QuestionID string    `json:"question_id"`
	ChoiceID   string    `json:"choice_id"`
	UserID     *string   `json:"-"` // Never expose in JSON
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Anonymous reports whether u carries no resolved identity.
func (u User) Anonymous() bool {
	return u.ID == ""
}

// DisplayName returns "First Last", falling back to the username.
func (u User) DisplayName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	case u.LastName != "":
		return u.LastName
	}
	return u.Username
}

type QuestionWithChoices struct {
	Question Question `json:"question"`
	Choices  []Choice `json:"choices"`
}

// TotalVotes sums the cached tallies.
func (q QuestionWithChoices) TotalVotes() int {
	total := 0
	for _, c := range q.Choices {
		total += c.Votes
	}
	return total
}

// Listing row with window flags resolved against the listing instant

type QuestionSummary struct {
	Question
	PublishedRecently bool `json:"published_recently"`
	VotingOpen        bool `json:"voting_open"`
}

// Request types

type VoteRequest struct {
	ChoiceID string `json:"choice_id"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type CreateQuestionRequest struct {
	Text    string     `json:"text"`
	PubDate *time.Time `json:"pub_date,omitempty"`
	EndDate *time.Time `json:"end_date,omitempty"`
	Choices []string   `json:"choices"`
}

type AddChoiceRequest struct {
	Text string `json:"text"`
}

type CreateUserRequest struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// Response types

type VoteResponse struct {
	VoteID     string `json:"vote_id"`
	ChoiceID   string `json:"choice_id"`
	Updated    bool   `json:"updated"`
	Message    string `json:"message"`
	ResultsURL string `json:"results_url"`
}

type MyVoteResponse struct {
	QuestionID string  `json:"question_id"`
	Choice     *Choice `json:"choice"`
}

type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      User      `json:"user"`
}

type ResultsResponse struct {
	Question   Question `json:"question"`
	Choices    []Choice `json:"choices"`
	TotalVotes int      `json:"total_votes"`
}

type AddChoiceResponse struct {
	ChoiceID string `json:"choice_id"`
}

// Error response

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
