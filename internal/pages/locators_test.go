package pages

import (
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestResourceRow_Examples(t *testing.T) {
	cases := []struct {
		name string
		want string
	}{
		{"cube.obj", `#files-space-table [data-test-resource-name="cube.obj"]`},
		{"my model.glb", `#files-space-table [data-test-resource-name="my model.glb"]`},
		{`say "hi".stl`, `#files-space-table [data-test-resource-name="say \"hi\".stl"]`},
		{`back\slash.obj`, `#files-space-table [data-test-resource-name="back\\slash.obj"]`},
		{"tab\there.obj", `#files-space-table [data-test-resource-name="tab\9 here.obj"]`},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, ResourceRow(tc.name), tc.name)
	}
	require.Equal(t, `#app-top-bar-resource [data-test-resource-name="cube.obj"]`, TopbarResource("cube.obj"))
}

// unquoteCSS reverses cssString for the escapes it produces.
func unquoteCSS(t *rapid.T, quoted string) string {
	require.True(t, strings.HasPrefix(quoted, `"`) && strings.HasSuffix(quoted, `"`), quoted)
	body := quoted[1 : len(quoted)-1]
	var b strings.Builder
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c == '"' {
			t.Fatalf("unescaped quote at %d in %s", i, quoted)
		}
		if c != '\\' {
			b.WriteByte(c)
			continue
		}
		i++
		require.Less(t, i, len(body), "dangling escape in %s", quoted)
		if body[i] == '"' || body[i] == '\\' {
			b.WriteByte(body[i])
			continue
		}
		end := strings.IndexByte(body[i:], ' ')
		require.GreaterOrEqual(t, end, 0, "hex escape without terminator in %s", quoted)
		code, err := strconv.ParseInt(body[i:i+end], 16, 32)
		require.NoError(t, err)
		b.WriteRune(rune(code))
		i += end
	}
	return b.String()
}

func testCSSString_RoundTrips(t *rapid.T) {
	name := rapid.StringOfN(rapid.SampledFrom([]rune{
		'a', 'Z', '0', '9', '.', ' ', '-', '_', '"', '\\', '\'', '[', ']', '\t', '\n', 'é', '3',
	}), 1, 24, -1).Draw(t, "name")

	quoted := cssString(name)
	require.Equal(t, name, unquoteCSS(t, quoted))
}

func TestCSSString_RoundTrips(t *testing.T) {
	t.Parallel()
	rapid.Check(t, testCSSString_RoundTrips)
}

func testResourceRow_ScopesToFilesTable(t *rapid.T) {
	name := rapid.StringMatching(`[a-zA-Z0-9 ._"\-]{1,20}`).Draw(t, "name")

	row := ResourceRow(name)
	require.True(t, strings.HasPrefix(row, selFilesTable+" [data-test-resource-name="))
	require.True(t, strings.HasSuffix(row, `"]`))
	require.Equal(t, name, unquoteCSS(t, strings.TrimSuffix(strings.TrimPrefix(row, selFilesTable+" [data-test-resource-name="), "]")))
}

func TestResourceRow_ScopesToFilesTable(t *testing.T) {
	t.Parallel()
	rapid.Check(t, testResourceRow_ScopesToFilesTable)
}
