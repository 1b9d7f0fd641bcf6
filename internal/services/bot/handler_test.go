package bot

import "testing"

func TestParseCommand(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		text    string
		command string
		args    string
	}{
		{"bare command", "/start", "start", ""},
		{"deep link argument", "/start 12345", "start", "12345"},
		{"bot mention stripped", "/profile@shop_bot", "profile", ""},
		{"mention with args", "/broadcast@shop_bot всем привет", "broadcast", "всем привет"},
		{"extra spaces trimmed", "/buy  key", "buy", "key"},
		{"multiword args", "/broadcast новое поступление ключей", "broadcast", "новое поступление ключей"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			command, args := ParseCommand(tc.text)
			if command != tc.command {
				t.Fatalf("command: expected %q, got %q", tc.command, command)
			}
			if args != tc.args {
				t.Fatalf("args: expected %q, got %q", tc.args, args)
			}
		})
	}
}

func TestIsCommand(t *testing.T) {
	t.Parallel()

	if !IsCommand("/start") {
		t.Fatalf("expected /start to be a command")
	}
	if IsCommand("SALE20") {
		t.Fatalf("promo code must not be a command")
	}
	if IsCommand("") {
		t.Fatalf("empty text must not be a command")
	}
}
