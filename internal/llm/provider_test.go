package llm

import "testing"

func TestPromptText(t *testing.T) {
	if got := UserPrompt("Who hosts the Olympics?").Text(); got != "Who hosts the Olympics?" {
		t.Errorf("unexpected text %q", got)
	}

	p := &Prompt{
		SystemPrompt: "sys",
		Messages:     []Message{{Role: RoleUser, Content: "q"}, {Role: RoleAssistant, Content: "a"}},
	}
	if got := p.Text(); got != "sys\n\nq\n\na" {
		t.Errorf("unexpected text %q", got)
	}
}

func TestRequestOptions(t *testing.T) {
	var nilOpts *RequestOptions
	if nilOpts.MaxTokensOr(150) != 150 {
		t.Error("nil options should use the default")
	}
	if WithMaxTokens(0).MaxTokensOr(150) != 150 {
		t.Error("zero should use the default")
	}
	if WithMaxTokens(64).MaxTokensOr(150) != 64 {
		t.Error("explicit limit ignored")
	}
}

func TestAPIError(t *testing.T) {
	e := &APIError{Provider: "huggingface", StatusCode: 503, Body: "Model is currently loading"}
	if !e.Temporary() {
		t.Error("503 should be temporary")
	}
	if e.Error() != "huggingface: 503 Service Unavailable: Model is currently loading" {
		t.Errorf("unexpected message %q", e.Error())
	}
	if (&APIError{StatusCode: 401}).Temporary() {
		t.Error("401 should not be temporary")
	}
}
