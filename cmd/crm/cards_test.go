package main

import (
	"testing"

	"github.com/stretchr/testify/require"

	"crmcore/internal/domain"
)

func TestParseLinks(t *testing.T) {
	links, err := parseLinks([]string{"customer=c1, c2", "company=co1", "customer=c3"})
	require.NoError(t, err)
	require.Equal(t, map[string][]string{
		"customer": {"c1", "c2", "c3"},
		"company":  {"co1"},
	}, links)

	_, err = parseLinks([]string{"c1"})
	require.Error(t, err)
	_, err = parseLinks([]string{"=c1"})
	require.Error(t, err)
}

func TestParseOrderItems(t *testing.T) {
	items, err := parseOrderItems([]string{"a=1.5", "b=-0.1"})
	require.NoError(t, err)
	require.Equal(t, []domain.OrderItem{{ID: "a", Order: 1.5}, {ID: "b", Order: -0.1}}, items)

	_, err = parseOrderItems([]string{"a"})
	require.Error(t, err)
	_, err = parseOrderItems([]string{"a=x"})
	require.Error(t, err)
}
