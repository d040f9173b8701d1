package httpclient

// Classify maps a raw transport result onto the outcome taxonomy. It is
// a pure function: transport errors and malformed results classify as
// TransportFailure, 4xx as HTTPClientError, 5xx as HTTPServerError, and
// a 2xx body failing the caller's check as BusinessRejection. A nil
// return means the attempt succeeded.
func Classify(res *RawResult, err error, check RejectionCheck) error {
	if err != nil {
		return NewTransportError("request failed", err)
	}
	if res == nil {
		return NewTransportError("transport returned no result", nil)
	}

	if res.StatusCode >= 400 {
		return NewHTTPError(res.StatusCode, res.Body)
	}

	if check != nil {
		if cerr := check(res); cerr != nil {
			if ce, ok := cerr.(ClientError); ok {
				return ce
			}
			return &RejectionError{message: cerr.Error(), body: res.Body, cause: cerr}
		}
	}

	return nil
}
