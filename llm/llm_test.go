package llm

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/turingroom/turing-room-api/models"
)

func TestClientComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"hey there"}}]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-model", "test-key")
	got, err := c.Complete(context.Background(), []ChatMessage{{Role: "user", Content: "hi"}}, 1.3, 20)
	assert.NoError(t, err)
	assert.Equal(t, "hey there", got)
}

func TestClientCompleteBadRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-model", "test-key")
	_, err := c.Complete(context.Background(), nil, 1, 20)
	assert.True(t, errors.Is(err, ErrBadRequest))
}

func TestClientCompleteUpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-model", "test-key")
	_, err := c.Complete(context.Background(), nil, 1, 20)
	assert.True(t, errors.Is(err, ErrUpstream))
}

func TestClientCompleteNoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-model", "test-key")
	_, err := c.Complete(context.Background(), nil, 1, 20)
	assert.True(t, errors.Is(err, ErrUpstream))
}

func TestBuildPrompt(t *testing.T) {
	history := []models.Message{
		{Sender: models.RoleInterrogator, Recipient: models.RoleAI, Body: "what do you do"},
		{Sender: models.RoleAI, Recipient: models.RoleInterrogator, Body: "i fix bikes"},
	}

	got := BuildPrompt([]PromptFunc{SystemPersona(DefaultPersona), History()}, history, "where")

	assert.Len(t, got, 4)
	assert.Equal(t, "system", got[0].Role)
	assert.Equal(t, DefaultPersona, got[0].Content)
	assert.Equal(t, ChatMessage{Role: "user", Content: "what do you do"}, got[1])
	assert.Equal(t, ChatMessage{Role: "assistant", Content: "i fix bikes"}, got[2])
	assert.Equal(t, ChatMessage{Role: "user", Content: "where"}, got[3])
}

func TestBuildPromptRoomContext(t *testing.T) {
	got := BuildPrompt([]PromptFunc{RoomContext("g42"), History()}, nil, "hi")
	assert.Len(t, got, 2)
	assert.Equal(t, "system", got[0].Role)
	assert.Contains(t, got[0].Content, "g42")
}

func TestCleanReplyStripsStageDirections(t *testing.T) {
	assert.Equal(t, "sure, why not.", CleanReply("sure, (shrugs) why not"))
	assert.Equal(t, "ok.", CleanReply("（笑）ok"))
}

func TestCleanReplyCollapsesFiller(t *testing.T) {
	got := CleanReply("haha yeah haha that's funny haha")
	assert.Equal(t, 1, countOccurrences(got, "haha"))
}

func TestCleanReplyFillerIsCaseInsensitive(t *testing.T) {
	got := CleanReply("HAHA sure haha why not Haha")
	assert.Equal(t, 1, countOccurrences(strings.ToLower(got), "haha"))
}

func TestCleanReplyFillerAfterWideRunes(t *testing.T) {
	// lowercasing Ⱥ grows it from two bytes to three, so match offsets must
	// come from the reply itself, not a lowered copy
	got := CleanReply("Ⱥhaha yeah haha")
	assert.Equal(t, 1, countOccurrences(got, "haha"))
	assert.Equal(t, "Ⱥhaha yeah.", got)
}

func TestCleanReplyTerminalPunctuation(t *testing.T) {
	assert.Equal(t, "no way.", CleanReply("no way"))
	assert.Equal(t, "no way!", CleanReply("no way!"))
	assert.Equal(t, "", CleanReply("  (sighs)  "))
}

func countOccurrences(s, sub string) int {
	count := 0
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			count++
		}
	}
	return count
}

func TestReplyDelayBounds(t *testing.T) {
	for i := 0; i < 100; i++ {
		d := ReplyDelay(20, 10)
		assert.GreaterOrEqual(t, d, time.Second)
		assert.Less(t, d, 30*time.Second)
	}
}

func TestReplyDelayGrowsWithLength(t *testing.T) {
	short := time.Duration(0)
	long := time.Duration(0)
	for i := 0; i < 50; i++ {
		short += ReplyDelay(5, 0)
		long += ReplyDelay(80, 0)
	}
	assert.Greater(t, long, short)
}
