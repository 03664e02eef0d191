package signin

import "net/url"

// SuccessParam is the one-shot query marker appended to the post-sign-in
// redirect so the landing page can acknowledge the event exactly once.
const SuccessParam = "signInSuccess"

// AnnotateRedirect resolves target against base and, when a sign-in just
// completed on this request, appends the success marker. The decision is a
// pure function of the request's own result; there is no shared flag that
// concurrent sign-ins could race on. Any URL construction failure falls back
// to the unmodified base URL.
func AnnotateRedirect(target, base string, signedIn bool) string {
	baseURL, err := url.Parse(base)
	if err != nil {
		return base
	}
	resolved := baseURL
	if target != "" {
		targetURL, err := url.Parse(target)
		if err != nil {
			return base
		}
		resolved = baseURL.ResolveReference(targetURL)
	}
	if signedIn {
		query := resolved.Query()
		query.Set(SuccessParam, "true")
		resolved.RawQuery = query.Encode()
	}
	return resolved.String()
}
