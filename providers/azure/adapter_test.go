package azure

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/HelgeSverre/llmflow-sub000/providers"
	"github.com/HelgeSverre/llmflow-sub000/types"
)

func newTestAdapter() *Adapter {
	return NewAdapter(providers.AzureConfig{Resource: "myresource"}, zap.NewNop())
}

func TestResolveTarget(t *testing.T) {
	a := newTestAdapter()

	target := a.ResolveTarget(&types.ProxyRequest{Model: "gpt-4o"})
	assert.Equal(t, "myresource.openai.azure.com", target.Host)
	assert.Equal(t, "/openai/deployments/gpt-4o/chat/completions?api-version=2024-02-01", target.Path)
}

func TestDeploymentFromModel(t *testing.T) {
	// Azure deployment 名不允许点号
	assert.Equal(t, "gpt-35-turbo", deploymentFromModel("gpt-3.5-turbo"))
	assert.Equal(t, "gpt-4o", deploymentFromModel(" gpt-4o "))
	assert.Empty(t, deploymentFromModel(""))
}

func TestResolveTarget_MissingModelStillResolves(t *testing.T) {
	a := newTestAdapter()

	// deployment 推导不出时目标依旧成形，由上游拒绝
	target := a.ResolveTarget(&types.ProxyRequest{})
	assert.Equal(t, "/openai/deployments//chat/completions?api-version=2024-02-01", target.Path)
}

func TestTransformRequestHeaders(t *testing.T) {
	a := newTestAdapter()

	h := http.Header{}
	h.Set("Authorization", "Bearer az-key")
	out := a.TransformRequestHeaders(h)
	assert.Equal(t, "az-key", out.Get("api-key"))
	assert.Empty(t, out.Get("Authorization"))
}

func TestNormalizeResponse_DelegatesToOpenAIShape(t *testing.T) {
	a := newTestAdapter()

	body := []byte(`{"model":"gpt-4o","choices":[{"message":{"role":"assistant","content":"hi"}}],"usage":{"prompt_tokens":3,"completion_tokens":1}}`)
	norm := a.NormalizeResponse(body)
	assert.Equal(t, "gpt-4o", norm.Model)
	assert.Equal(t, 4, norm.Usage.TotalTokens)
}
