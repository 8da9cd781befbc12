package sandbox

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProcessToolCodeInfersDependencies(t *testing.T) {
	code := "import pandas\nimport requests\n\nprint(pandas.__version__)\n"
	out := ProcessToolCode(code)

	assert.Contains(t, out, "# /// script")
	assert.Contains(t, out, `"pandas"`)
	assert.Contains(t, out, `"requests"`)
}

func TestProcessToolCodeMapsImportToPackage(t *testing.T) {
	code := "import yaml\nimport cv2\n"
	out := ProcessToolCode(code)

	assert.Contains(t, out, `"pyyaml"`)
	assert.Contains(t, out, `"opencv-python"`)
}

func TestProcessToolCodeLastScriptBlockWins(t *testing.T) {
	code := `# /// script
# dependencies = ["numpy"]
# ///
# /// script
# dependencies = ["scipy"]
# ///
print("hi")
`
	out := ProcessToolCode(code)
	assert.Contains(t, out, `"scipy"`)
	assert.NotContains(t, out, `"numpy"`)
}

func TestProcessToolCodeSingleLineDependencyComment(t *testing.T) {
	code := "# dependencies = [\"torch\"]\nprint('hi')\n"
	out := ProcessToolCode(code)
	assert.Contains(t, out, `"torch"`)
	assert.NotContains(t, out, "# dependencies = [\"torch\"]\nprint")
}

func TestProcessToolCodeInjectsToolsImport(t *testing.T) {
	code := "import requests\n\nresult = Tools.get_weather(city='Tokyo')\nprint(result)\n"
	out := ProcessToolCode(code)

	assert.Contains(t, out, "from tools import Tools, MCPToolError")
	assert.Contains(t, out, `"requests"`)
}

func TestProcessToolCodeNoImportInjectionWhenAlreadyImported(t *testing.T) {
	code := "from tools import Tools, MCPToolError\n\nresult = Tools.get_weather(city='Tokyo')\n"
	out := ProcessToolCode(code)

	count := strings.Count(out, "from tools import")
	assert.Equal(t, 1, count)
}

func TestProcessToolCodeNoDependenciesNoBlock(t *testing.T) {
	code := "print('hello world')\n"
	out := ProcessToolCode(code)
	assert.NotContains(t, out, "# /// script")
	assert.Equal(t, "print('hello world')", out)
}

func TestProcessToolCodeIsIdempotent(t *testing.T) {
	code := "import pandas\n\nresult = Tools.get_weather(city='London')\nprint(result)\n"
	once := ProcessToolCode(code)
	twice := ProcessToolCode(once)
	assert.Equal(t, once, twice)
}
