package common

// AccessTokenHeaderName is the gRPC metadata key used to carry the
// access token on inbound requests.
const AccessTokenHeaderName = "access_token"

// ForwardedForHeaderName carries the client address when the server sits
// behind a proxy.
const ForwardedForHeaderName = "x-forwarded-for"
