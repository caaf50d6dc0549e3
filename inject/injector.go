package inject

import (
	"net/http"

	"warden/metrics"

	"go.uber.org/zap"
	"golang.org/x/net/html"
)

// Options configures an Injector. Empty names fall back to the package defaults.
type Options struct {
	MetaName   string
	HeaderName string
	FieldName  string
	Logger     *zap.SugaredLogger
}

// Injector reads a page's CSRF token and spreads it to outgoing requests and forms.
type Injector struct {
	metaName   string
	headerName string
	fieldName  string
	logger     *zap.SugaredLogger
}

// Result is what Init produced for one document.
type Result struct {
	// Token is the token that was found. Empty when Active is false.
	Token string
	// Active reports whether a token was found and injection took place.
	Active bool
	// RoundTripper attaches the token to requests. When Active is false it is the base
	// round tripper passed to Init, unchanged.
	RoundTripper http.RoundTripper
	// FormsAugmented counts the forms that received a hidden field.
	FormsAugmented int
}

// NewInjector creates an Injector from opts.
func NewInjector(opts Options) *Injector {
	inj := &Injector{
		metaName:   opts.MetaName,
		headerName: opts.HeaderName,
		fieldName:  opts.FieldName,
		logger:     opts.Logger,
	}
	if inj.metaName == "" {
		inj.metaName = DefaultMetaName
	}
	if inj.headerName == "" {
		inj.headerName = DefaultHeaderName
	}
	if inj.fieldName == "" {
		inj.fieldName = DefaultFieldName
	}
	if inj.logger == nil {
		inj.logger = zap.NewNop().Sugar()
	}
	return inj
}

// Init reads the token from doc through src, wraps base and augments the forms present
// in doc right now. A nil src reads the injector's meta element. Without a token nothing
// happens: the result carries base itself and doc is not modified.
func (i *Injector) Init(doc *html.Node, src TokenSource, base http.RoundTripper) *Result {
	if src == nil {
		src = MetaTokenSource{Name: i.metaName}
	}

	token := src.Token(doc)
	if token == "" {
		metrics.DocumentsWithoutToken.Inc()
		i.logger.Debugw("No CSRF token in document, skipping injection", "meta", i.metaName)
		return &Result{RoundTripper: base}
	}

	res := &Result{
		Token:        token,
		Active:       true,
		RoundTripper: NewTransport(base, i.headerName, token),
	}
	res.FormsAugmented = AugmentForms(doc, i.fieldName, token)
	metrics.FormsAugmented.Add(float64(res.FormsAugmented))

	i.logger.Debugw("CSRF token injected",
		"header", i.headerName,
		"field", i.fieldName,
		"forms_augmented", res.FormsAugmented)
	return res
}

// Client returns a copy of c that sends through r.RoundTripper when the result is
// active, and c itself otherwise. The copy is made the same way WrapClient makes one.
func (r *Result) Client(c *http.Client) *http.Client {
	if !r.Active {
		return c
	}
	return withTransport(c, r.RoundTripper)
}
