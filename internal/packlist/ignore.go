package packlist

// defaultIgnoreDirs are directory names excluded from the fallback
// full-tree scan when a manifest has no "files" field. Treated as
// normative per the spec's Open Question.
var defaultIgnoreDirs = map[string]bool{
	".git":         true,
	".svn":         true,
	".hg":          true,
	".vscode":      true,
	".idea":        true,
	"test":         true,
	"tests":        true,
	"__tests__":    true,
	".github":      true,
	"coverage":     true,
	".nyc_output":  true,
	".plunk":       true,
	"node_modules": true,
}

// defaultIgnoreFiles are individual file names excluded regardless of
// directory, matched against the file's base name.
var defaultIgnoreFiles = map[string]bool{
	".DS_Store":        true,
	".editorconfig":    true,
	".eslintrc":        true,
	".eslintrc.json":   true,
	".eslintrc.js":     true,
	".prettierrc":      true,
	".prettierrc.json": true,
	"jest.config.js":   true,
	"jest.config.json": true,
	".gitignore":       true,
	".npmignore":       true,
}

// npmignoreName is the sibling-file name carrying additional, user-supplied
// ignore patterns, one token per non-comment line.
const npmignoreName = ".npmignore"
