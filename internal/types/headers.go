package types

// HeaderRequestID is the response header carrying the per-request
// correlation ID (generated by RequestIDMiddleware if the caller didn't
// supply one via X-Request-ID).
const HeaderRequestID = "X-Request-ID"
