package app

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/coschain/hivebridge/iservices"
	"github.com/coschain/hivebridge/prototype"
	"github.com/coschain/hivebridge/rpc"
	"github.com/coschain/hivebridge/utils"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// EditWindow is how long after creation a post may still be edited or deleted.
const EditWindow = 7 * 24 * time.Hour

const (
	DefaultAppName           = "hivebridge/1.0"
	DefaultBaseURL           = "https://hive.blog"
	DefaultMaxAcceptedPayout = "1000000.000 HBD"
	DefaultCategory          = "general"
)

type PostConfig struct {
	AppName           string
	BaseURL           string
	MaxAcceptedPayout string
	// Platform is appended to the beneficiaries of every top-level post.
	// A zero weight disables it.
	Platform prototype.BeneficiaryRoute
}

func DefaultPostConfig() PostConfig {
	return PostConfig{
		AppName:           DefaultAppName,
		BaseURL:           DefaultBaseURL,
		MaxAcceptedPayout: DefaultMaxAcceptedPayout,
		Platform:          prototype.BeneficiaryRoute{Account: "hivebridge", Weight: 300},
	}
}

type PostBroadcaster struct {
	signer iservices.ISigner
	reader iservices.INodeReader
	guard  *ResourceCreditGuard
	clock  utils.Clock
	cfg    PostConfig
	log    *logrus.Logger
}

// NewPostBroadcaster builds a broadcaster. guard may be nil, in which case no
// resource credit pre-flight is done.
func NewPostBroadcaster(signer iservices.ISigner, reader iservices.INodeReader, guard *ResourceCreditGuard,
	clock utils.Clock, cfg PostConfig, log *logrus.Logger) *PostBroadcaster {
	if clock == nil {
		clock = utils.SystemClock{}
	}
	if cfg.AppName == "" {
		cfg.AppName = DefaultAppName
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.MaxAcceptedPayout == "" {
		cfg.MaxAcceptedPayout = DefaultMaxAcceptedPayout
	}
	return &PostBroadcaster{signer: signer, reader: reader, guard: guard, clock: clock, cfg: cfg, log: log}
}

func (p *PostBroadcaster) ValidatePostData(intent *prototype.PostIntent) prototype.ValidationResult {
	return prototype.ValidatePostData(intent)
}

func (p *PostBroadcaster) CanUserPost(ctx context.Context, username string) *prototype.RCStatus {
	if p.guard == nil {
		return &prototype.RCStatus{CanPost: false, Message: "resource credit guard not configured"}
	}
	return p.guard.CanUserPost(ctx, username)
}

func (p *PostBroadcaster) GetEstimatedRCCost(bodyLength int) int64 {
	return GetEstimatedRCCost(bodyLength)
}

func (p *PostBroadcaster) PublishPost(ctx context.Context, intent *prototype.PostIntent) *prototype.PublishResult {
	if intent != nil && intent.IsReply() {
		return p.PublishComment(ctx, &prototype.CommentIntent{
			Author:         intent.Author,
			Body:           intent.Body,
			ParentAuthor:   intent.ParentAuthor,
			ParentPermlink: intent.ParentPermlink,
			Metadata:       intent.Metadata,
		})
	}
	if v := prototype.ValidatePostData(intent); !v.IsValid {
		return validationFailed(v.Errors)
	}
	if res := p.checkCredits(ctx, intent.Author); res != nil {
		return res
	}

	tags := intent.PostTags()
	parentPermlink := DefaultCategory
	if len(tags) > 0 {
		parentPermlink = tags[0]
	}
	meta, err := p.buildMetadata(nil, intent.Metadata, tags)
	if err != nil {
		return validationFailed([]string{err.Error()})
	}
	beneficiaries, err := mergeBeneficiaries(intent.Beneficiaries, p.cfg.Platform)
	if err != nil {
		return validationFailed([]string{err.Error()})
	}

	permlink := prototype.PostPermlink(intent.Title, p.clock.Now())
	comment := &prototype.CommentOperation{
		ParentAuthor:   "",
		ParentPermlink: parentPermlink,
		Author:         intent.Author,
		Permlink:       permlink,
		Title:          intent.Title,
		Body:           intent.Body,
		JsonMetadata:   meta,
	}
	options := &prototype.CommentOptionsOperation{
		Author:               intent.Author,
		Permlink:             permlink,
		MaxAcceptedPayout:    p.cfg.MaxAcceptedPayout,
		PercentHbd:           prototype.Percent,
		AllowVotes:           true,
		AllowCurationRewards: true,
		Extensions:           []prototype.CommentOptionsExtension{},
	}
	if len(beneficiaries) > 0 {
		options.Extensions = append(options.Extensions, prototype.CommentOptionsExtension{Beneficiaries: beneficiaries})
	}
	if err := comment.Validate(); err != nil {
		return validationFailed([]string{err.Error()})
	}
	if err := options.Validate(); err != nil {
		return validationFailed([]string{err.Error()})
	}
	return p.submit(ctx, intent.Author, permlink, comment.AsOperation(), options.AsOperation())
}

func (p *PostBroadcaster) PublishComment(ctx context.Context, intent *prototype.CommentIntent) *prototype.PublishResult {
	if v := prototype.ValidateCommentData(intent); !v.IsValid {
		return validationFailed(v.Errors)
	}
	if res := p.checkCredits(ctx, intent.Author); res != nil {
		return res
	}
	meta, err := p.buildMetadata(nil, intent.Metadata, nil)
	if err != nil {
		return validationFailed([]string{err.Error()})
	}
	permlink := prototype.CommentPermlink(intent.ParentPermlink, p.clock.Now())
	comment := &prototype.CommentOperation{
		ParentAuthor:   intent.ParentAuthor,
		ParentPermlink: intent.ParentPermlink,
		Author:         intent.Author,
		Permlink:       permlink,
		Body:           intent.Body,
		JsonMetadata:   meta,
	}
	if err := comment.Validate(); err != nil {
		return validationFailed([]string{err.Error()})
	}
	return p.submit(ctx, intent.Author, permlink, comment.AsOperation())
}

// UpdatePost re-broadcasts the comment with new content. Parent fields come
// from the chain and metadata is merged into what is already there.
func (p *PostBroadcaster) UpdatePost(ctx context.Context, intent *prototype.UpdateIntent) *prototype.PublishResult {
	if errs := validateUpdate(intent); len(errs) > 0 {
		return validationFailed(errs)
	}
	existing, res := p.loadEditable(ctx, intent.Author, intent.Permlink)
	if res != nil {
		return res
	}

	title := intent.Title
	if title == "" {
		title = existing.Title
	}
	var tags []string
	if intent.Tags != nil {
		tags = prototype.NormalizeTags(intent.Tags)
		if len(tags) > prototype.MaxTags {
			return validationFailed([]string{fmt.Sprintf("Maximum %d tags allowed", prototype.MaxTags)})
		}
	}
	meta, err := p.buildMetadata(existingMetadata(existing.JsonMetadata, p.log), intent.Metadata, tags)
	if err != nil {
		return validationFailed([]string{err.Error()})
	}
	comment := &prototype.CommentOperation{
		ParentAuthor:   existing.ParentAuthor,
		ParentPermlink: existing.ParentPermlink,
		Author:         existing.Author,
		Permlink:       existing.Permlink,
		Title:          title,
		Body:           intent.Body,
		JsonMetadata:   meta,
	}
	return p.submit(ctx, existing.Author, existing.Permlink, comment.AsOperation())
}

// DeletePost blanks the body. Content with votes or replies cannot be removed
// from the chain, so a deleted post stays addressable but empty.
func (p *PostBroadcaster) DeletePost(ctx context.Context, intent *prototype.DeleteIntent) *prototype.PublishResult {
	if intent == nil || intent.Author == "" || intent.Permlink == "" {
		return validationFailed([]string{"Author and permlink are required"})
	}
	existing, res := p.loadEditable(ctx, intent.Author, intent.Permlink)
	if res != nil {
		return res
	}
	comment := &prototype.CommentOperation{
		ParentAuthor:   existing.ParentAuthor,
		ParentPermlink: existing.ParentPermlink,
		Author:         existing.Author,
		Permlink:       existing.Permlink,
		Title:          existing.Title,
		Body:           "",
		JsonMetadata:   existing.JsonMetadata,
	}
	return p.submit(ctx, existing.Author, existing.Permlink, comment.AsOperation())
}

func (p *PostBroadcaster) loadEditable(ctx context.Context, author, permlink string) (*rpc.Content, *prototype.PublishResult) {
	existing, err := rpc.GetContent(ctx, p.reader, author, permlink)
	if err == rpc.ErrContentNotFound {
		return nil, failed(prototype.NewChainError(prototype.KindValidation, "", prototype.ErrPostNotFound.Error()))
	}
	if err != nil {
		p.log.WithFields(logrus.Fields{"author": author, "permlink": permlink}).Warn("existing post unreadable: ", err)
		return nil, failed(prototype.NewChainError(prototype.KindReadFailure, "",
			errors.WithMessage(err, "read existing post").Error()))
	}
	if p.clock.Now().Sub(existing.Created.Time) > EditWindow {
		return nil, failed(prototype.NewChainError(prototype.KindValidation, "", prototype.ErrEditWindowClosed.Error()))
	}
	return existing, nil
}

func (p *PostBroadcaster) checkCredits(ctx context.Context, author string) *prototype.PublishResult {
	if p.guard == nil {
		return nil
	}
	status := p.guard.CanUserPost(ctx, author)
	if status.CanPost {
		return nil
	}
	return failed(prototype.NewChainError(prototype.KindInsufficientRC, "", status.Message))
}

func (p *PostBroadcaster) submit(ctx context.Context, author, permlink string, ops ...prototype.Operation) *prototype.PublishResult {
	trxId, err := p.signer.Broadcast(ctx, ops, prototype.KeyScopePosting)
	if err != nil {
		p.log.WithFields(logrus.Fields{"author": author, "permlink": permlink, "ops": len(ops)}).
			Warn("post broadcast failed: ", err)
		return failed(err)
	}
	return &prototype.PublishResult{
		BroadcastResult: *prototype.BroadcastOk(trxId),
		Author:          author,
		Permlink:        permlink,
		Url:             fmt.Sprintf("%s/@%s/%s", strings.TrimRight(p.cfg.BaseURL, "/"), author, permlink),
	}
}

func (p *PostBroadcaster) buildMetadata(base, extra map[string]interface{}, tags []string) (string, error) {
	meta := map[string]interface{}{}
	for k, v := range base {
		meta[k] = v
	}
	for k, v := range extra {
		meta[k] = v
	}
	if tags != nil {
		meta["tags"] = tags
	}
	if _, ok := meta["tags"]; !ok {
		meta["tags"] = []string{}
	}
	meta["app"] = p.cfg.AppName
	if _, ok := meta["format"]; !ok {
		meta["format"] = "markdown"
	}
	data, err := json.Marshal(meta)
	if err != nil {
		return "", errors.Wrap(err, "encode json_metadata")
	}
	return string(data), nil
}

func existingMetadata(raw string, log *logrus.Logger) map[string]interface{} {
	meta := map[string]interface{}{}
	if raw == "" {
		return meta
	}
	if err := json.Unmarshal([]byte(raw), &meta); err != nil {
		log.Warn("existing json_metadata is not an object, replacing it: ", err)
		return map[string]interface{}{}
	}
	return meta
}

func validateUpdate(intent *prototype.UpdateIntent) []string {
	if intent == nil {
		return []string{"Update data is required"}
	}
	var errs []string
	if strings.TrimSpace(intent.Author) == "" {
		errs = append(errs, "Author is required")
	}
	if strings.TrimSpace(intent.Permlink) == "" {
		errs = append(errs, "Permlink is required")
	}
	if strings.TrimSpace(intent.Body) == "" {
		errs = append(errs, "Body is required")
	}
	if utf8.RuneCountInString(intent.Title) > prototype.MaxTitleLength {
		errs = append(errs, fmt.Sprintf("Title must be %d characters or less", prototype.MaxTitleLength))
	}
	if utf8.RuneCountInString(intent.Body) > prototype.MaxBodyLength {
		errs = append(errs, fmt.Sprintf("Body must be %d characters or less", prototype.MaxBodyLength))
	}
	return errs
}

// mergeBeneficiaries adds the platform route, sums duplicate accounts and
// sorts by account name as the chain requires.
func mergeBeneficiaries(routes []prototype.BeneficiaryRoute, platform prototype.BeneficiaryRoute) ([]prototype.BeneficiaryRoute, error) {
	weights := make(map[string]int)
	add := func(r prototype.BeneficiaryRoute) {
		if r.Account == "" || r.Weight == 0 {
			return
		}
		weights[r.Account] += int(r.Weight)
	}
	for _, r := range routes {
		add(r)
	}
	add(platform)

	total := 0
	out := make([]prototype.BeneficiaryRoute, 0, len(weights))
	for account, w := range weights {
		total += w
		out = append(out, prototype.BeneficiaryRoute{Account: account, Weight: uint16(w)})
	}
	if total > prototype.Percent {
		return nil, errors.Errorf("beneficiary weights total %d exceeds %d", total, prototype.Percent)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Account < out[j].Account })
	return out, nil
}

func failed(err error) *prototype.PublishResult {
	return &prototype.PublishResult{BroadcastResult: *prototype.BroadcastFailed(err)}
}

func validationFailed(errs []string) *prototype.PublishResult {
	res := failed(prototype.NewChainError(prototype.KindValidation, "", strings.Join(errs, "; ")))
	res.Errors = errs
	return res
}
