package webhook

import "github.com/stretchr/testify/mock"

// MatchEndpoint creates a custom matcher for endpoint arguments in mocks
func MatchEndpoint(matcher func(Endpoint) bool) interface{} {
	return mock.MatchedBy(matcher)
}

// MatchDelivery creates a custom matcher for delivery log arguments in mocks
func MatchDelivery(matcher func(DeliveryLog) bool) interface{} {
	return mock.MatchedBy(matcher)
}
