package utils

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAddQueryParams(t *testing.T) {
	testCases := []struct {
		name     string
		endpoint string
		params   map[string]string
		expected string
	}{
		{
			name:     "no params",
			endpoint: "https://ethereum-sepolia-rpc.publicnode.com",
			expected: "https://ethereum-sepolia-rpc.publicnode.com",
		},
		{
			name:     "one param",
			endpoint: "https://rpc.example.com/v1",
			params:   map[string]string{"key": "abc"},
			expected: "https://rpc.example.com/v1?key=abc",
		},
		{
			name:     "existing query",
			endpoint: "https://rpc.example.com/v1?a=1",
			params:   map[string]string{"b": "2"},
			expected: "https://rpc.example.com/v1?a=1&b=2",
		},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			actual, err := addQueryParams(testCase.endpoint, testCase.params)
			require.NoError(t, err)
			require.Equal(t, testCase.expected, actual)
		})
	}

	_, err := addQueryParams("not a url", map[string]string{"a": "b"})
	require.Error(t, err)
}

func TestSanitizeHexString(t *testing.T) {
	require.Equal(t, "abcd", SanitizeHexString("0xabcd"))
	require.Equal(t, "abcd", SanitizeHexString("abcd"))
	require.Equal(t, "ABCD", SanitizeHexString("0XABCD"))
}
