// Package inject carries a server-issued CSRF token into everything a page sends back.
//
// The token is read once from the page's <meta name="csrf-token"> element. An Injector
// then does two things with it:
//
//   - It decorates an http.RoundTripper so every request sent through it carries the
//     token in the X-CSRF-Token header.
//   - It appends a hidden csrf_token input to every <form> in the document that does
//     not already have one.
//
// A document without a token is left alone. Init hands back the original round tripper
// and touches no form.
//
// Usage:
//
//	doc, err := inject.ParseDocument(page)
//	if err != nil {
//	    return err
//	}
//	res := inject.NewInjector(inject.Options{Logger: sugar}).Init(doc, nil, http.DefaultTransport)
//	client := res.Client(http.DefaultClient)
//
// Forms added to the document after Init are not augmented.
package inject
