package common

// SessionTokenHeaderName is the gRPC metadata key used to carry the
// session token on requests and responses.
const SessionTokenHeaderName = "session_token"

// ForwardedForHeaderName is the metadata key a fronting proxy uses to pass
// the original client address.
const ForwardedForHeaderName = "x-forwarded-for"
