package credparse

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLine(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		line string
		want Credential
		ok   bool
	}{
		{
			name: "labeled with pipes",
			line: "Логин: mail@mail.com | Пароль: Pass123 | Спасибо за покупку",
			want: Credential{Login: "mail@mail.com", Password: "Pass123"},
			ok:   true,
		},
		{
			name: "labeled english with proxy",
			line: "Login: bob@x.io Password: hunter2 Proxy: 10.0.0.1:8080",
			want: Credential{Login: "bob@x.io", Password: "hunter2", Proxy: "10.0.0.1:8080"},
			ok:   true,
		},
		{
			name: "labeled lower case cyrillic",
			line: "логин user77 пароль qwerty",
			want: Credential{Login: "user77", Password: "qwerty"},
			ok:   true,
		},
		{
			name: "colon pair",
			line: "login:pass",
			want: Credential{Login: "login", Password: "pass"},
			ok:   true,
		},
		{
			name: "colon with proxy",
			line: "b@x.com:pw2:proxy1",
			want: Credential{Login: "b@x.com", Password: "pw2", Proxy: "proxy1"},
			ok:   true,
		},
		{
			name: "colon keeps proxy port",
			line: "b@x.com:pw2:host:3128",
			want: Credential{Login: "b@x.com", Password: "pw2", Proxy: "host:3128"},
			ok:   true,
		},
		{
			name: "semicolon generic",
			line: "a@x.com;pw1",
			want: Credential{Login: "a@x.com", Password: "pw1"},
			ok:   true,
		},
		{
			name: "tab generic with proxy",
			line: "a@x.com\tpw1\tsocks5",
			want: Credential{Login: "a@x.com", Password: "pw1", Proxy: "socks5"},
			ok:   true,
		},
		{
			name: "user pass stays generic",
			line: "user pass",
			want: Credential{Login: "user", Password: "pass"},
			ok:   true,
		},
		{
			name: "comma generic",
			line: "a@x.com,pw1",
			want: Credential{Login: "a@x.com", Password: "pw1"},
			ok:   true,
		},
		{
			name: "comma and space generic with proxy",
			line: "a@x.com, pw1, proxy1",
			want: Credential{Login: "a@x.com", Password: "pw1", Proxy: "proxy1"},
			ok:   true,
		},
		{
			name: "colon line made of short labels",
			line: "user:pass:proxy1",
			want: Credential{Login: "user", Password: "pass", Proxy: "proxy1"},
			ok:   true,
		},
		{
			name: "colon line made of full labels",
			line: "login:password:host",
			want: Credential{Login: "login", Password: "password", Proxy: "host"},
			ok:   true,
		},
		{
			name: "colon line with label and equals inside",
			line: "bob:user:pwd=x",
			want: Credential{Login: "bob", Password: "user", Proxy: "pwd=x"},
			ok:   true,
		},
		{
			name: "labeled with equals",
			line: "user=bob pwd=x",
			want: Credential{Login: "bob", Password: "x"},
			ok:   true,
		},
		{name: "single token", line: "garbage", ok: false},
		{name: "dangling colon", line: "garbage:", ok: false},
		{name: "blank", line: "   ", ok: false},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, ok := ParseLine(tc.line)
			require.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseBlockCountsSkippedLines(t *testing.T) {
	t.Parallel()

	creds, skipped := ParseBlock("a@x.com;pw1\n\nb@x.com:pw2:proxy1\r\ngarbage\n")

	require.Len(t, creds, 2)
	assert.Equal(t, 1, skipped)
	assert.Equal(t, Credential{Login: "a@x.com", Password: "pw1"}, creds[0])
	assert.Equal(t, Credential{Login: "b@x.com", Password: "pw2", Proxy: "proxy1"}, creds[1])
}

func TestParseBlockEmpty(t *testing.T) {
	t.Parallel()

	creds, skipped := ParseBlock("\n  \n")

	assert.Empty(t, creds)
	assert.Zero(t, skipped)
}

func TestParseSeparatedBlock(t *testing.T) {
	t.Parallel()

	creds, skipped := ParseSeparatedBlock(strings.Join([]string{
		"login1;pass1;host:8080",
		"login2;pass2;",
		"only-login",
		";missing-login",
	}, "\n"), ";")

	require.Len(t, creds, 2)
	assert.Equal(t, 2, skipped)
	assert.Equal(t, "host:8080", creds[0].Proxy)
	assert.False(t, creds[1].HasProxy())
}

func TestFormatRoundTripWithLabelWords(t *testing.T) {
	t.Parallel()

	for _, cred := range []Credential{
		{Login: "user", Password: "pass", Proxy: "proxy1"},
		{Login: "login", Password: "password", Proxy: "host"},
		{Login: "bob", Password: "user", Proxy: "pwd=x"},
		{Login: "email", Password: "proxy"},
	} {
		got, ok := ParseLine(Format(cred))
		require.True(t, ok, Format(cred))
		assert.Equal(t, cred, got)
	}
}

func TestFormat(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "a:b", Format(Credential{Login: "a", Password: "b"}))
	assert.Equal(t, "a:b:c", Format(Credential{Login: "a", Password: "b", Proxy: "c"}))
}
