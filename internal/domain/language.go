package domain

// DefaultLanguage is used when a client joins without naming a language.
const DefaultLanguage = "javascript"

// starter buffers shown for a language slot that has never been saved
var templates = map[string]string{
	"javascript": "// JavaScript\nconsole.log(\"Hello, CodeSync!\");\n\nconst add = (a, b) => a + b;\nconsole.log(\"2 + 3 =\", add(2, 3));",
	"typescript": "// TypeScript\ninterface User { name: string; age: number; }\nconst greet = (u: User): string => `Hello, ${u.name}!`;\nconsole.log(greet({ name: \"CodeSync\", age: 1 }));",
	"python":     "# Python\nprint(\"Hello, CodeSync!\")\n\ndef add(a, b):\n    return a + b\n\nprint(\"2 + 3 =\", add(2, 3))",
	"html":       "<!DOCTYPE html>\n<html>\n<head>\n  <style>body{font-family:sans-serif;background:#1a1a2e;color:#eee;padding:40px} h1{color:#6c63ff}</style>\n</head>\n<body>\n  <h1>Hello, CodeSync!</h1>\n  <p>Edit me and click Run.</p>\n</body>\n</html>",
	"css":        "/* CSS Preview */\nbody {\n  font-family: sans-serif;\n  background: #1a1a2e;\n  color: #eee;\n  padding: 40px;\n}\n\nh1 { color: #6c63ff; }",
	"json":       "{\n  \"name\": \"CodeSync\",\n  \"version\": \"2.0.0\",\n  \"features\": [\"real-time\", \"multi-language\", \"auth\"]\n}",
	"sql":        "-- SQL Demo\nSELECT u.id, u.name, COUNT(p.id) AS posts\nFROM users u\nLEFT JOIN posts p ON p.user_id = u.id\nWHERE u.active = true\nGROUP BY u.id\nORDER BY posts DESC\nLIMIT 10;",
	"java":       "// Java\npublic class Main {\n    public static void main(String[] args) {\n        System.out.println(\"Hello, CodeSync!\");\n        int sum = 0;\n        for (int i = 1; i <= 5; i++) sum += i;\n        System.out.println(\"Sum 1-5: \" + sum);\n    }\n}",
	"cpp":        "// C++\n#include <iostream>\nusing namespace std;\n\nint main() {\n    cout << \"Hello, CodeSync!\" << endl;\n    int sum = 0;\n    for (int i = 1; i <= 5; i++) sum += i;\n    cout << \"Sum 1-5: \" << sum << endl;\n    return 0;\n}",
	"markdown":   "# Hello CodeSync\n\n## Features\n- Real-time collaboration\n- **Multi-language** support\n- Code execution\n\n> Build together, ship faster.",
}

// Template returns the starter buffer for lang.
func Template(lang string) (string, bool) {
	t, ok := templates[lang]
	return t, ok
}

// ResolveBuffer applies the fallback chain persisted -> template -> empty string.
func ResolveBuffer(lang, persisted string, found bool) string {
	if found {
		return persisted
	}
	if t, ok := Template(lang); ok {
		return t
	}
	return ""
}
