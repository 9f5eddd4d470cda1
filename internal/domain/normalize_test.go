package domain

import (
    "testing"

    "github.com/stretchr/testify/assert"
)

func TestNormalizeDomain(t *testing.T) {
    cases := []struct {
        in   string
        want string
    }{
        {"example.com", "example.com"},
        {"EXAMPLE.COM", "example.com"},
        {"  example.com  ", "example.com"},
        {"http://example.com", "example.com"},
        {"https://example.com", "example.com"},
        {"HTTP://WWW.Example.com:8080/x?y", "example.com"},
        {"www.example.com", "example.com"},
        {"example.com/path/to/page", "example.com"},
        {"example.com?utm=1", "example.com"},
        {"example.com#fragment", "example.com"},
        {"example.com:443", "example.com"},
        {"https://www.shop.example.co.uk/checkout?step=2", "shop.example.co.uk"},
        {"", ""},
    }
    for _, tc := range cases {
        assert.Equal(t, tc.want, NormalizeDomain(tc.in), "input %q", tc.in)
    }
}

func TestNormalizeDomainIdempotent(t *testing.T) {
    inputs := []string{
        "HTTP://WWW.Example.com:8080/x?y",
        "https://sub.domain.example.org/a/b#c",
        "www.www-prefixed.com",
        "plain.io",
    }
    for _, in := range inputs {
        once := NormalizeDomain(in)
        assert.Equal(t, once, NormalizeDomain(once), "normalize not idempotent for %q", in)
    }
}
