package fuzztests

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const (
	maxSeedBytes = 64 << 10 // 64 KiB, ограничение для тестового корпуса
	maxFuzzInput = 1 << 16
)

// inlineSeeds покрывают конструкции, которых может не быть в testdata.
var inlineSeeds = []string{
	"",
	"{{",
	"{%",
	"{%-%}",
	"{{ product.title | upcase }}",
	"{% if a %}{% elsif b %}{% else %}{% endif %}",
	"{% for i in (1..3) %}{{ forloop.index }}{% endfor %}",
	"{% case x %}{% when 1, 2 %}{% else %}{% endcase %}",
	"{% liquid\nassign x = 1\nif x\necho x\nendif\n%}",
	"{% schema %}{\"settings\": [{\"type\": \"range\", \"id\": \"n\", \"min\": 0, \"max\": 10, \"step\": 1}]}{% endschema %}",
	"{% schema %}{\"name\": {% endschema %}",
	"{% javascript %}let a = `{{ x }}`;{% endjavascript %}",
	"{% stylesheet %}.a { color: red; }",
	"{% raw %}{{ not evaluated }}{% endraw %}",
	"\uFEFF<p>\u201Cquoted\u201D text\u200B</p>",
	"<a href=\"{{ url }}\u200B\">link</a>",
	"{% render 'card', product: product %}",
}

func addCorpusSeeds(f *testing.F) {
	for _, s := range inlineSeeds {
		f.Add([]byte(s))
	}
	addTestdataSeeds(f)
}

func addTestdataSeeds(f *testing.F) {
	root := filepath.Join("..", "..", "testdata")
	if _, err := os.Stat(root); err != nil {
		return
	}
	// проходим по дереву testdata, добавляем все *.liquid файлы
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil || d.IsDir() {
			return nil
		}
		if !strings.EqualFold(filepath.Ext(path), ".liquid") {
			return nil
		}
		// #nosec G304 -- path comes from repository testdata walk
		src, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		f.Add(clampSeed(src))
		return nil
	})
}

func clampSeed(src []byte) []byte {
	if len(src) <= maxSeedBytes {
		return append([]byte(nil), src...)
	}
	return append([]byte(nil), src[:maxSeedBytes]...)
}

func clampInput(input []byte) []byte {
	if len(input) > maxFuzzInput {
		return append([]byte(nil), input[:maxFuzzInput]...)
	}
	return append([]byte(nil), input...)
}
