package llm

import "context"

// MockGenerator is a scriptable Generator for tests: each call pops the next
// queued response (text or error) and records the prompt it received.
type MockGenerator struct {
	ProviderName string
	Responses    []MockResponse
	Prompts      []string

	calls int
}

// MockResponse is one scripted Generate outcome.
type MockResponse struct {
	Text string
	Err  error
}

func (m *MockGenerator) Name() string {
	if m.ProviderName == "" {
		return "mock"
	}
	return m.ProviderName
}

func (m *MockGenerator) Generate(_ context.Context, prompt string, _ Options) (string, error) {
	m.Prompts = append(m.Prompts, prompt)
	if m.calls >= len(m.Responses) {
		return "", nil
	}
	resp := m.Responses[m.calls]
	m.calls++
	return resp.Text, resp.Err
}

// Calls reports how many times Generate ran.
func (m *MockGenerator) Calls() int { return m.calls }
