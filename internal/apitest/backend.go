// Package apitest provides an in-memory fake of the verification REST API,
// served by gin, that records every call it receives.
package apitest

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"prizedesk/internal/types"
)

// Call is one request the fake received.
type Call struct {
	Method string
	Path   string
	Query  url.Values
	Body   []byte
}

// Decode unmarshals the request body into v.
func (c Call) Decode(v any) error { return json.Unmarshal(c.Body, v) }

type failure struct {
	method string
	path   string
	status int
	times  int
}

// Backend mirrors the behavior of the production API closely enough for
// controller tests: search, filters, sort, pagination, stats and klisha.
type Backend struct {
	mu      sync.Mutex
	records []types.Record
	issues  []types.PendingIssue
	calls   []Call
	fails   []*failure
	now     func() time.Time
	hold    chan struct{}
	holdFor string
}

// New returns an empty backend.
func New() *Backend {
	return &Backend{now: time.Now}
}

// SetNow overrides the timestamp source.
func (b *Backend) SetNow(now func() time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.now = now
}

// Start serves the backend until the test ends and returns the API base URL.
func (b *Backend) Start(t testing.TB) string {
	t.Helper()
	srv := httptest.NewServer(b.Handler())
	t.Cleanup(srv.Close)
	return srv.URL + "/api"
}

// Handler returns the gin engine serving the API under /api.
func (b *Backend) Handler() http.Handler {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(b.record, b.inject)

	api := r.Group("/api")
	api.GET("/verifications", b.listVerifications)
	api.POST("/verifications", b.createVerification)
	api.GET("/verifications/:id", b.getVerification)
	api.PUT("/verifications/:id", b.updateVerification)
	api.DELETE("/verifications/:id", b.deleteVerification)
	api.GET("/dashboard-stats", b.stats)
	api.GET("/generate-klisha/:id", b.klisha)

	api.GET("/pending-issues", b.listIssues)
	api.POST("/pending-issues", b.createIssue)
	api.PUT("/pending-issues/mark-sent", b.markSent)
	api.PUT("/pending-issues/:id", b.updateIssue)
	api.DELETE("/pending-issues/:id", b.deleteIssue)
	return r
}

// =============================================================================
// TEST CONTROLS
// =============================================================================

// AddRecord seeds a verification record, assigning an id when empty.
func (b *Backend) AddRecord(r types.Record) types.Record {
	b.mu.Lock()
	defer b.mu.Unlock()
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	r = r.WithDefaults()
	if r.UpdatedAt == "" {
		r.UpdatedAt = b.stamp()
	}
	b.records = append(b.records, r)
	return r
}

// AddIssue seeds a pending issue, assigning an id and open status when empty.
func (b *Backend) AddIssue(i types.PendingIssue) types.PendingIssue {
	b.mu.Lock()
	defer b.mu.Unlock()
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	if i.Status == "" {
		i.Status = types.IssueOpen
	}
	b.issues = append(b.issues, i)
	return i
}

// Record returns the stored record with id.
func (b *Backend) Record(id string) (types.Record, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, r := range b.records {
		if r.ID == id {
			return r, true
		}
	}
	return types.Record{}, false
}

// Issues returns a copy of the stored issues.
func (b *Backend) Issues() []types.PendingIssue {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]types.PendingIssue(nil), b.issues...)
}

// RecordCount returns the number of stored records.
func (b *Backend) RecordCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.records)
}

// Calls returns every request received so far.
func (b *Backend) Calls() []Call {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Call(nil), b.calls...)
}

// CallsTo returns the requests matching method whose path starts with prefix
// (relative to /api).
func (b *Backend) CallsTo(method, prefix string) []Call {
	var out []Call
	for _, c := range b.Calls() {
		if c.Method == method && strings.HasPrefix(c.Path, prefix) {
			out = append(out, c)
		}
	}
	return out
}

// FailNext makes the next n requests matching method and path prefix answer
// with status.
func (b *Backend) FailNext(method, prefix string, status, n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.fails = append(b.fails, &failure{method: method, path: prefix, status: status, times: n})
}

// Hold blocks requests matching method until the returned release func is
// called. Only one hold is active at a time.
func (b *Backend) Hold(method string) (release func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan struct{})
	b.hold, b.holdFor = ch, method
	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			if b.hold == ch {
				b.hold, b.holdFor = nil, ""
			}
			b.mu.Unlock()
			close(ch)
		})
	}
}

// =============================================================================
// MIDDLEWARE
// =============================================================================

func (b *Backend) record(c *gin.Context) {
	body, _ := io.ReadAll(c.Request.Body)
	c.Request.Body = io.NopCloser(bytes.NewReader(body))
	b.mu.Lock()
	b.calls = append(b.calls, Call{
		Method: c.Request.Method,
		Path:   strings.TrimPrefix(c.Request.URL.Path, "/api"),
		Query:  c.Request.URL.Query(),
		Body:   body,
	})
	hold := b.hold
	if b.holdFor != c.Request.Method {
		hold = nil
	}
	b.mu.Unlock()
	if hold != nil {
		<-hold
	}
	c.Next()
}

func (b *Backend) inject(c *gin.Context) {
	path := strings.TrimPrefix(c.Request.URL.Path, "/api")
	b.mu.Lock()
	for _, f := range b.fails {
		if f.times > 0 && f.method == c.Request.Method && strings.HasPrefix(path, f.path) {
			f.times--
			b.mu.Unlock()
			c.AbortWithStatusJSON(f.status, gin.H{"message": fmt.Sprintf("injected failure %d", f.status)})
			return
		}
	}
	b.mu.Unlock()
	c.Next()
}

func (b *Backend) stamp() string {
	return b.now().Format("2006-01-02T15:04:05.000000")
}

// =============================================================================
// VERIFICATIONS
// =============================================================================

var defaultSearchFields = []string{"client_name", "email", "agency_id", "account_number", "prize_due_date"}

func (b *Backend) listVerifications(c *gin.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()

	query := strings.ToLower(strings.TrimSpace(c.Query("query")))
	fields := defaultSearchFields
	if sf := strings.TrimSpace(c.Query("search_fields")); sf != "" {
		fields = nil
		for _, f := range strings.Split(sf, ",") {
			if f = strings.TrimSpace(f); f != "" {
				fields = append(fields, f)
			}
		}
	}
	status := c.Query("status")
	published, hasPublished := c.GetQuery("published")
	due := c.Query("prize_due_date")

	var matched []map[string]any
	for _, r := range b.records {
		m := toMap(r)
		if query != "" && !matchesQuery(m, fields, query) {
			continue
		}
		if status != "" && status != types.All && r.Status != types.Status(status) {
			continue
		}
		if hasPublished && published != types.All && r.PrizePublishedOnGroup != (strings.ToLower(published) == "true") {
			continue
		}
		if due != "" && r.PrizeDueDate != due {
			continue
		}
		matched = append(matched, m)
	}

	if key := c.Query("sort_by"); key != "" {
		desc := c.Query("sort_direction") == "desc"
		sort.SliceStable(matched, func(i, j int) bool {
			if desc {
				return lessValue(matched[j][key], matched[i][key])
			}
			return lessValue(matched[i][key], matched[j][key])
		})
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	start := min((page-1)*limit, len(matched))
	end := min(start+limit, len(matched))

	c.JSON(http.StatusOK, gin.H{"records": matched[start:end], "total_count": len(matched)})
}

func matchesQuery(m map[string]any, fields []string, q string) bool {
	for _, f := range fields {
		v, ok := m[f]
		if ok && strings.Contains(strings.ToLower(fmt.Sprint(v)), q) {
			return true
		}
	}
	return false
}

func lessValue(a, b any) bool {
	fa, aNum := a.(float64)
	fb, bNum := b.(float64)
	if aNum && bNum {
		return fa < fb
	}
	return strings.ToLower(fmt.Sprint(a)) < strings.ToLower(fmt.Sprint(b))
}

func toMap(r types.Record) map[string]any {
	data, _ := json.Marshal(r)
	var m map[string]any
	_ = json.Unmarshal(data, &m)
	return m
}

func (b *Backend) createVerification(c *gin.Context) {
	var seed types.Record
	_ = c.ShouldBindJSON(&seed)

	b.mu.Lock()
	defer b.mu.Unlock()
	seed.ID = uuid.NewString()
	seed.Status = types.StatusInProgress
	seed.CreatedAt = b.stamp()
	seed.UpdatedAt = seed.CreatedAt
	seed = seed.WithDefaults()
	b.records = append(b.records, seed)
	c.JSON(http.StatusCreated, seed)
}

func (b *Backend) getVerification(c *gin.Context) {
	if r, ok := b.Record(c.Param("id")); ok {
		c.JSON(http.StatusOK, r)
		return
	}
	c.JSON(http.StatusNotFound, gin.H{"message": "Record not found"})
}

func (b *Backend) updateVerification(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	var patch map[string]any
	if err := json.Unmarshal(body, &patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for i, r := range b.records {
		if r.ID != c.Param("id") {
			continue
		}
		m := toMap(r)
		for k, v := range patch {
			m[k] = v
		}
		m["updated_at"] = b.stamp()
		data, _ := json.Marshal(m)
		var merged types.Record
		if err := json.Unmarshal(data, &merged); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
			return
		}
		b.records[i] = merged
		c.JSON(http.StatusOK, merged)
		return
	}
	c.JSON(http.StatusNotFound, gin.H{"message": "Record not found"})
}

func (b *Backend) deleteVerification(c *gin.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, r := range b.records {
		if r.ID == c.Param("id") {
			b.records = append(b.records[:i], b.records[i+1:]...)
			c.JSON(http.StatusOK, gin.H{"message": "Record deleted successfully"})
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"message": "Record not found"})
}

func (b *Backend) stats(c *gin.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	today := b.now().Format(types.DateLayout)
	var s types.DashboardStats
	s.TotalRecords = len(b.records)
	for _, r := range b.records {
		if r.Status == types.StatusInProgress {
			s.InProgressCount++
		}
		if r.IsCompleted() && strings.HasPrefix(r.UpdatedAt, today) {
			s.CompletedTodayCount++
		}
		if r.PrizePublishedOnGroup {
			s.PrizePublishedCount++
		}
	}
	c.JSON(http.StatusOK, s)
}

func (b *Backend) klisha(c *gin.Context) {
	r, ok := b.Record(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"message": "Record not found"})
		return
	}
	prize := r.PrizeAmount.String() + "$"
	if r.PrizeType.IsDeposit() {
		prize = fmt.Sprintf("بونص إيداع بنسبة %s%%", r.DepositBonusPercentage)
	}
	text := fmt.Sprintf("الاسم: %s\nالايميل: %s\nرقم الحساب: %s\nالجائزة: %s\nاسم الوكيل: %s\nنوع الوكالة: %s\nرقم الوكالة: %s\n\nفائز عن المسابقة\nتم التحقق من التحويل",
		r.ClientName, r.Email, r.AccountNumber, prize, r.AgentName, r.AgencyType, r.AgencyID)
	c.JSON(http.StatusOK, gin.H{"klisha": text})
}

// =============================================================================
// PENDING ISSUES
// =============================================================================

func (b *Backend) listIssues(c *gin.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	status := c.Query("status_filter")
	out := []types.PendingIssue{}
	for _, i := range b.issues {
		if status == "" || status == types.All || i.Status == types.IssueStatus(status) {
			out = append(out, i)
		}
	}
	c.JSON(http.StatusOK, out)
}

func (b *Backend) createIssue(c *gin.Context) {
	var in types.NewIssue
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	issue := types.PendingIssue{
		ID:          uuid.NewString(),
		ClientName:  in.ClientName,
		ClientID:    in.ClientID,
		Description: in.Description,
		Status:      types.IssueOpen,
		CreatedAt:   b.stamp(),
	}
	b.issues = append(b.issues, issue)
	c.JSON(http.StatusCreated, issue)
}

func (b *Backend) updateIssue(c *gin.Context) {
	var patch struct {
		Status        *types.IssueStatus `json:"status"`
		IsSentToGroup *bool              `json:"is_sent_to_group"`
	}
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.issues {
		issue := &b.issues[i]
		if issue.ID != c.Param("id") {
			continue
		}
		if patch.Status != nil {
			issue.Status = *patch.Status
			if *patch.Status == types.IssueResolved {
				ts := b.stamp()
				issue.ResolvedAt = &ts
			}
		}
		if patch.IsSentToGroup != nil {
			issue.IsSentToGroup = *patch.IsSentToGroup
			if !issue.IsSentToGroup {
				issue.SentAt = nil
			} else if issue.SentAt == nil {
				ts := b.stamp()
				issue.SentAt = &ts
			}
		}
		c.JSON(http.StatusOK, *issue)
		return
	}
	c.JSON(http.StatusNotFound, gin.H{"message": "Pending issue not found"})
}

func (b *Backend) markSent(c *gin.Context) {
	var body struct {
		IDs []string `json:"ids"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	want := make(map[string]bool, len(body.IDs))
	for _, id := range body.IDs {
		want[id] = true
	}
	updated := 0
	for i := range b.issues {
		if want[b.issues[i].ID] && !b.issues[i].IsSentToGroup {
			ts := b.stamp()
			b.issues[i].IsSentToGroup = true
			b.issues[i].SentAt = &ts
			updated++
		}
	}
	if updated == 0 {
		c.JSON(http.StatusNotFound, gin.H{"message": "No issues found or updated"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("%d issues marked as sent successfully", updated)})
}

func (b *Backend) deleteIssue(c *gin.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, issue := range b.issues {
		if issue.ID == c.Param("id") {
			b.issues = append(b.issues[:i], b.issues[i+1:]...)
			c.JSON(http.StatusOK, gin.H{"message": "Pending issue deleted successfully"})
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"message": "Pending issue not found"})
}
