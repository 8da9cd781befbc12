package sandbox

import (
	"fmt"
	"strings"

	"github.com/kadirpekel/agentkernel/internal/toolspec"
)

// ProxyFilename is the name the generated tool-proxy source is written
// under inside the sandbox working directory.
const ProxyFilename = "tools.py"

const proxyHeaderTemplate = `import json
import sys
import requests

_GATEWAY_URL = "http://%s:%d/mcp_tool_call"


class MCPToolError(Exception):
    def __init__(self, message, error_type=None):
        super().__init__(message)
        self.error_type = error_type

    def __str__(self):
        return f"MCPToolError (Type: {self.error_type or 'UNKNOWN'}): {super().__str__()}"


def _call_gateway(tool_name, **kwargs):
    try:
        payload = {"tool_name": tool_name, "arguments": kwargs}
        response = requests.post(_GATEWAY_URL, json=payload, timeout=60)
        response.raise_for_status()
        data = response.json()

        result = data.get("result", {})
        if result.get("isError"):
            error_content = result.get("content", [{}])[0]
            raise MCPToolError(error_content.get("text", "Unknown tool execution error"), error_type="TOOL_EXECUTION_ERROR")

        content = result.get("content", [])
        if len(content) == 1 and content[0].get("type") == "text":
            return content[0]["text"]
        return content
    except requests.HTTPError as e:
        try:
            error_data = e.response.json()
            raise MCPToolError(error_data.get("message", str(e)), error_type=error_data.get("type", "HTTP_ERROR"))
        except json.JSONDecodeError:
            raise MCPToolError(f"HTTP error {e.response.status_code} and failed to decode error response.", error_type="HTTP_ERROR")
    except requests.RequestException as e:
        raise MCPToolError(f"Communication error with gateway: {e}", error_type="AGENT_COMMUNICATION_ERROR")
    except json.JSONDecodeError:
        raise MCPToolError("Failed to decode successful JSON response from gateway.", error_type="AGENT_COMMUNICATION_ERROR")
`

// GenerateProxySource renders the tools.py proxy module from the full
// registry metadata: a Tools class with one static method per
// registered tool, each forwarding to the Gateway over HTTP.
func GenerateProxySource(descriptors []toolspec.Descriptor, gatewayHost string, gatewayPort int) string {
	var b strings.Builder
	fmt.Fprintf(&b, proxyHeaderTemplate, gatewayHost, gatewayPort)
	b.WriteString("\n\nclass Tools:\n")

	if len(descriptors) == 0 {
		b.WriteString("    pass\n")
		return b.String()
	}

	for _, d := range descriptors {
		methodName := d.ProxyName()
		params := d.InputProperties()
		sig := strings.Join(params, ", ")
		kwargs := make([]string, len(params))
		for i, p := range params {
			kwargs[i] = fmt.Sprintf("%s=%s", p, p)
		}
		doc := d.Description
		if doc == "" {
			doc = "No description provided."
		}

		fmt.Fprintf(&b, "    @staticmethod\n")
		fmt.Fprintf(&b, "    def %s(%s):\n", methodName, sig)
		fmt.Fprintf(&b, "        \"\"\"%s\"\"\"\n", doc)
		fmt.Fprintf(&b, "        return _call_gateway(%q, %s)\n\n", d.Name, strings.Join(kwargs, ", "))
	}

	return b.String()
}
