package gateway

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hxuan190/chain-gateway/internal/common"
	"github.com/hxuan190/chain-gateway/internal/connectors"
	"github.com/hxuan190/chain-gateway/internal/domain"
	"github.com/hxuan190/chain-gateway/internal/events"
	"github.com/hxuan190/chain-gateway/internal/metrics"
	"github.com/hxuan190/chain-gateway/internal/quotecache"
	"github.com/hxuan190/chain-gateway/internal/reconcile"
	"github.com/hxuan190/chain-gateway/internal/tokens"
)

// SwapRequest is a quote or execute request after HTTP parsing. Empty
// Network and Provider fall back to the chain's defaults.
type SwapRequest struct {
	Network       string
	WalletAddress string
	BaseToken     string
	QuoteToken    string
	Amount        decimal.Decimal
	Side          domain.Side
	SlippagePct   *float64
	Provider      string
}

// Poller reports the status of an arbitrary transaction signature.
type Poller interface {
	Poll(ctx context.Context, signature string) (domain.PollResponse, error)
}

// Network is everything a swapper needs to serve one network.
type Network struct {
	Name            string
	Tokens          *tokens.List
	DefaultProvider string
	SlippagePct     float64
	Poller          Poller
}

// ChainSwapper serves quotes and executions for every configured network of
// one chain.
type ChainSwapper struct {
	chain          string
	defaultNetwork string
	resolver       *connectors.Resolver
	networks       map[string]*Network
	cache          quotecache.Store
	events         events.Publisher
	logger         *common.ServiceLogger
	now            func() time.Time
}

func NewChainSwapper(resolver *connectors.Resolver, cache quotecache.Store, publisher events.Publisher) *ChainSwapper {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	s := &ChainSwapper{
		chain:    resolver.Chain(),
		resolver: resolver,
		networks: make(map[string]*Network),
		cache:    cache,
		events:   publisher,
		now:      time.Now,
	}
	s.logger = common.NewServiceLogger(s)
	return s
}

func (s *ChainSwapper) ID() string {
	return "swapper." + s.chain
}

func (s *ChainSwapper) Chain() string {
	return s.chain
}

// AddNetwork registers a network. The first one added is the default unless
// SetDefaultNetwork says otherwise.
func (s *ChainSwapper) AddNetwork(n Network) error {
	name := strings.ToLower(n.Name)
	if name == "" {
		return errors.New("network name is required")
	}
	if _, dup := s.networks[name]; dup {
		return fmt.Errorf("network %s-%s already registered", s.chain, name)
	}
	if n.Tokens == nil {
		n.Tokens = tokens.NewList(nil, tokens.CaseSensitive)
	}
	if n.SlippagePct == 0 {
		n.SlippagePct = common.DefaultSlippagePct
	}
	n.Name = name
	s.networks[name] = &n
	if s.defaultNetwork == "" {
		s.defaultNetwork = name
	}
	return nil
}

func (s *ChainSwapper) SetDefaultNetwork(name string) error {
	name = strings.ToLower(name)
	if _, ok := s.networks[name]; !ok {
		return fmt.Errorf("default network %s-%s is not registered", s.chain, name)
	}
	s.defaultNetwork = name
	return nil
}

func (s *ChainSwapper) Networks() []string {
	out := make([]string, 0, len(s.networks))
	for name := range s.networks {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Providers lists the providers registered on network.
func (s *ChainSwapper) Providers(network string) []string {
	return s.resolver.Providers(network)
}

// Supports reports whether provider is registered on any network.
func (s *ChainSwapper) Supports(p connectors.Provider) bool {
	return s.resolver.Supports(p)
}

func (s *ChainSwapper) network(name string) (*Network, error) {
	if name == "" {
		name = s.defaultNetwork
	}
	n, ok := s.networks[strings.ToLower(name)]
	if !ok {
		return nil, common.HTTPErrorBadRequest(fmt.Sprintf("unsupported network %q for chain %s", name, s.chain))
	}
	return n, nil
}

func (s *ChainSwapper) resolveToken(n *Network, field, value string) (domain.Token, error) {
	if strings.TrimSpace(value) == "" {
		return domain.Token{}, common.HTTPErrorValidation(field, "is required")
	}
	t, err := n.Tokens.Resolve(value)
	if errors.Is(err, tokens.ErrTokenNotFound) {
		return domain.Token{}, common.HTTPErrorNotFound(fmt.Sprintf("token %s not found on %s-%s", value, s.chain, n.Name))
	}
	return t, err
}

// QuoteSwap prices req with the requested or default provider and caches the
// quote under a fresh id.
func (s *ChainSwapper) QuoteSwap(ctx context.Context, req SwapRequest) (*domain.SwapQuote, error) {
	n, err := s.network(req.Network)
	if err != nil {
		return nil, err
	}
	base, err := s.resolveToken(n, "baseToken", req.BaseToken)
	if err != nil {
		return nil, err
	}
	quote, err := s.resolveToken(n, "quoteToken", req.QuoteToken)
	if err != nil {
		return nil, err
	}
	if base.Address == quote.Address {
		return nil, common.HTTPErrorValidation("quoteToken", "must differ from baseToken")
	}
	if req.Side != domain.SideBuy && req.Side != domain.SideSell {
		return nil, common.HTTPErrorValidation("side", "must be BUY or SELL")
	}
	if !req.Amount.IsPositive() {
		return nil, common.HTTPErrorValidation("amount", "must be positive")
	}
	slippage := n.SlippagePct
	if req.SlippagePct != nil {
		slippage = *req.SlippagePct
	}
	if slippage < 0 || slippage >= 100 {
		return nil, common.HTTPErrorValidation("slippagePct", "must be within [0, 100)")
	}

	provider := req.Provider
	if provider == "" {
		provider = n.DefaultProvider
	}
	res, err := s.resolver.Resolve(ctx, n.Name, provider, base, quote)
	if err != nil {
		return nil, err
	}

	params := connectors.QuoteParams{
		Network:       n.Name,
		WalletAddress: req.WalletAddress,
		Base:          base,
		Quote:         quote,
		Side:          req.Side,
		Amount:        req.Amount,
		SlippagePct:   slippage,
		Pool:          res.Pool,
	}

	connector := res.Connector.Provider().String()
	start := time.Now()
	q, err := res.Connector.QuoteSwap(ctx, params)
	metrics.QuoteDuration.WithLabelValues(s.chain, connector).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.QuoteRequests.WithLabelValues(s.chain, n.Name, connector, "error").Inc()
		s.logger.Warn().Err(err).Str("network", n.Name).Str("provider", connector).Msg("[swapper] quote failed")
		return nil, err
	}
	metrics.QuoteRequests.WithLabelValues(s.chain, n.Name, connector, "ok").Inc()

	q.QuoteID = quotecache.NewID()
	s.cache.Set(q.QuoteID, &domain.CachedQuote{
		Quote:     q,
		Request:   params.Context(),
		CreatedAt: s.now(),
	})

	s.logger.Debug().
		Str("quoteId", q.QuoteID).
		Str("network", n.Name).
		Str("provider", connector).
		Str("amountIn", q.AmountIn.String()).
		Str("amountOut", q.AmountOut.String()).
		Msg("[swapper] quote cached")
	return q, nil
}

// ExecuteSwap quotes req and executes that quote immediately.
func (s *ChainSwapper) ExecuteSwap(ctx context.Context, req SwapRequest) (domain.TransactionOutcome, error) {
	if strings.TrimSpace(req.WalletAddress) == "" {
		return domain.TransactionOutcome{}, common.HTTPErrorValidation("walletAddress", "is required")
	}
	q, err := s.QuoteSwap(ctx, req)
	if err != nil {
		return domain.TransactionOutcome{}, err
	}
	// The caller never sees this quote id, so nothing could retry it.
	defer s.cache.Delete(q.QuoteID)
	return s.ExecuteQuote(ctx, q.Network, req.WalletAddress, q.QuoteID)
}

// QuoteForConnector is QuoteSwap pinned to one provider.
func (s *ChainSwapper) QuoteForConnector(ctx context.Context, provider string, req SwapRequest) (*domain.SwapQuote, error) {
	req.Provider = provider
	return s.QuoteSwap(ctx, req)
}

// ExecuteQuote executes a cached quote. The entry is removed only once the
// swap is confirmed so pending and failed quotes can be retried. A failed
// transaction is returned with an error.
func (s *ChainSwapper) ExecuteQuote(ctx context.Context, network, walletAddress, quoteID string) (domain.TransactionOutcome, error) {
	cached, ok := s.cache.Get(quoteID)
	if !ok {
		return domain.TransactionOutcome{}, common.HTTPErrorNotFound("Quote not found or expired")
	}
	if cached.Quote.Chain != s.chain {
		return domain.TransactionOutcome{}, common.HTTPErrorBadRequest(fmt.Sprintf("quote %s was issued for chain %s", quoteID, cached.Quote.Chain))
	}
	if network != "" && !strings.EqualFold(network, cached.Quote.Network) {
		return domain.TransactionOutcome{}, common.HTTPErrorBadRequest(fmt.Sprintf("quote %s was issued for network %s", quoteID, cached.Quote.Network))
	}

	// The cached entry is shared; execute against a copy.
	run := *cached
	if walletAddress != "" {
		run.Request.WalletAddress = walletAddress
	}
	if run.Request.WalletAddress == "" {
		return domain.TransactionOutcome{}, common.HTTPErrorValidation("walletAddress", "is required")
	}

	provider, err := connectors.ParseProvider(cached.Quote.Provider)
	if err != nil {
		return domain.TransactionOutcome{}, err
	}
	conn, ok := s.resolver.Connector(cached.Quote.Network, provider)
	if !ok {
		return domain.TransactionOutcome{}, common.HTTPErrorBadRequest(fmt.Sprintf("unsupported swap provider %s on %s-%s", provider, s.chain, cached.Quote.Network))
	}

	start := time.Now()
	receipt, err := conn.ExecuteQuote(ctx, &run)
	metrics.ExecuteDuration.WithLabelValues(s.chain, provider.String()).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.ExecuteRequests.WithLabelValues(s.chain, cached.Quote.Network, provider.String(), "error").Inc()
		s.logger.Warn().Err(err).Str("quoteId", quoteID).Str("provider", provider.String()).Msg("[swapper] execute failed")
		return domain.TransactionOutcome{}, err
	}
	metrics.ExecuteRequests.WithLabelValues(s.chain, cached.Quote.Network, provider.String(), "ok").Inc()

	outcome := reconcile.Reconcile(*receipt, reconcile.ExpectationFromQuote(run.Request.Side, run.Quote))
	metrics.TransactionOutcomes.WithLabelValues(s.chain, cached.Quote.Network, outcome.Status.String()).Inc()

	if err := s.events.PublishOutcome(ctx, events.NewSwapOutcomeEvent(&run, outcome)); err != nil {
		s.logger.Warn().Err(err).Str("signature", outcome.Signature).Msg("[swapper] failed to publish outcome event")
	}

	switch outcome.Status {
	case domain.TxStatusConfirmed:
		s.cache.Delete(quoteID)
		s.logger.Info().Str("quoteId", quoteID).Str("signature", outcome.Signature).Msg("[swapper] swap confirmed")
	case domain.TxStatusFailed:
		s.logger.Error().
			Str("quoteId", quoteID).
			Str("signature", receipt.Signature).
			Uint64("slot", receipt.Slot).
			Str("fee", receipt.Fee.String()).
			Str("reason", receipt.FailureReason).
			Msg("[swapper] swap FAILED on-chain")
		msg := fmt.Sprintf("transaction %s failed on-chain", receipt.Signature)
		if receipt.FailureReason != "" {
			msg += ": " + receipt.FailureReason
		}
		return outcome, common.HTTPErrorTransactionFailed(msg)
	default:
		s.logger.Info().Str("quoteId", quoteID).Str("signature", outcome.Signature).Msg("[swapper] swap pending, quote kept for retry")
	}
	return outcome, nil
}

// Poll looks up signature on network.
func (s *ChainSwapper) Poll(ctx context.Context, network, signature string) (domain.PollResponse, error) {
	n, err := s.network(network)
	if err != nil {
		return domain.PollResponse{}, err
	}
	if n.Poller == nil {
		return domain.PollResponse{}, common.HTTPErrorBadRequest(fmt.Sprintf("polling is not available on %s-%s", s.chain, n.Name))
	}
	if strings.TrimSpace(signature) == "" {
		return domain.PollResponse{}, common.HTTPErrorValidation("signature", "is required")
	}
	return n.Poller.Poll(ctx, strings.TrimSpace(signature))
}
