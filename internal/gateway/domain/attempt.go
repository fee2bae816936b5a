package domain

// Attempt is one dispatch of a logical request. Values are immutable: Retry
// returns a new attempt and leaves the receiver untouched.
type Attempt struct {
	request Request
	number  int
	token   string
}

func NewAttempt(req Request, token string) Attempt {
	return Attempt{request: req.Clone(), number: 1, token: token}
}

func (a Attempt) Number() int {
	return a.number
}

// Token is the access token the attempt is sent with.
func (a Attempt) Token() string {
	return a.token
}

func (a Attempt) Retried() bool {
	return a.number > 1
}

func (a Attempt) Retry(token string) Attempt {
	return Attempt{request: a.request, number: a.number + 1, token: token}
}

func (a Attempt) Request() Request {
	return a.request.Clone()
}

// Outbound returns the request as it goes on the wire, with the bearer token
// attached.
func (a Attempt) Outbound() Request {
	out := a.request.Clone()
	if a.token != "" {
		out.Header.Set(HeaderAuthorization, "Bearer "+a.token)
	} else {
		out.Header.Del(HeaderAuthorization)
	}
	return out
}
