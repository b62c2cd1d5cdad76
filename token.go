package script

var (
	reserved = map[string]bool{
		"abstract": true, "boolean": true, "break": true, "byte": true, "case": true,
		"catch": true, "char": true, "class": true, "continue": true, "default": true,
		"delete": true, "do": true, "double": true, "else": true, "enum": true,
		"extends": true, "false": true, "final": true, "finally": true, "float": true,
		"for": true, "if": true, "implements": true, "import": true, "instanceof": true,
		"int": true, "interface": true, "long": true, "new": true, "null": true,
		"private": true, "protected": true, "public": true, "return": true, "short": true,
		"static": true, "super": true, "switch": true, "synchronized": true,
		"throw": true, "true": true, "try": true, "void": true, "while": true,
	}

	modifiers = map[string]bool{
		"public": true, "private": true, "protected": true, "static": true,
		"final": true, "abstract": true, "synchronized": true, "native": true,
		"transient": true, "volatile": true,
	}

	// compound assignment operators, longest first
	compoundOps = []string{">>>=", "<<=", ">>=", "+=", "-=", "*=", "/=", "%=", "&=", "|=", "^="}
)

func isReserved(word string) bool {
	return reserved[word]
}

func isAccessModifier(word string) bool {
	return word == "public" || word == "private" || word == "protected"
}
