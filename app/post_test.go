package app

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/coschain/hivebridge/iservices/mock_iservices"
	"github.com/coschain/hivebridge/prototype"
	"github.com/coschain/hivebridge/utils"
	"github.com/golang/mock/gomock"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRCHelper struct {
	bar *utils.Manabar
	err error
}

func (f *fakeRCHelper) GetRCMana(ctx context.Context, username string) (*utils.Manabar, error) {
	return f.bar, f.err
}

func fullCredits() *fakeRCHelper {
	return &fakeRCHelper{bar: &utils.Manabar{CurrentMana: 900, MaxMana: 1000, LastUpdate: testNow}}
}

func existingPost(created time.Time) json.RawMessage {
	return json.RawMessage(fmt.Sprintf(`{"author":"alice","permlink":"hello","parent_author":"",
		"parent_permlink":"photography","category":"photography","title":"Hello","body":"old body",
		"json_metadata":"{\"tags\":[\"photography\"],\"image\":[\"a.png\"],\"app\":\"other/1\"}",
		"created":%q}`, created.UTC().Format(prototype.ChainTimeLayout)))
}

func newTestPostBroadcaster(ctrl *gomock.Controller, helper RCHelper) (*PostBroadcaster, *mock_iservices.MockISigner, *mock_iservices.MockINodeReader) {
	signer := mock_iservices.NewMockISigner(ctrl)
	reader := mock_iservices.NewMockINodeReader(ctrl)
	clock := utils.FixedClock{At: testNow}
	var guard *ResourceCreditGuard
	if helper != nil {
		guard = NewResourceCreditGuard(helper, reader, clock, quietLog())
	}
	return NewPostBroadcaster(signer, reader, guard, clock, DefaultPostConfig(), quietLog()), signer, reader
}

func TestValidatePostData_Accumulates(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	pb, _, _ := newTestPostBroadcaster(ctrl, nil)

	v := pb.ValidatePostData(&prototype.PostIntent{Title: "", Body: "", Author: "", Tags: []string{}})
	assert.False(t, v.IsValid)
	assert.GreaterOrEqual(t, len(v.Errors), 3)
}

func TestPublishPost_InvalidSkipsNetwork(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	pb, _, _ := newTestPostBroadcaster(ctrl, fullCredits())

	res := pb.PublishPost(context.Background(), &prototype.PostIntent{Title: "t", Body: "", Author: "alice",
		Tags: []string{"a", "b", "c", "d", "e", "f"}})
	assert.False(t, res.Success)
	assert.Equal(t, prototype.KindValidation, res.Kind)
	assert.Len(t, res.Errors, 2)
}

func TestPublishPost_CommunityWithFullTagList(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	pb, _, _ := newTestPostBroadcaster(ctrl, fullCredits())

	res := pb.PublishPost(context.Background(), &prototype.PostIntent{Title: "t", Body: "b", Author: "alice",
		SubCommunity: "hive-12345", Tags: []string{"a", "b", "c", "d", "e"}})
	assert.False(t, res.Success)
	assert.Equal(t, prototype.KindValidation, res.Kind)
	assert.Equal(t, []string{"Maximum 5 tags allowed"}, res.Errors)
}

func TestPublishPost_Operations(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	pb, signer, _ := newTestPostBroadcaster(ctrl, fullCredits())
	myassert := assert.New(t)

	signer.EXPECT().Broadcast(gomock.Any(), gomock.Any(), prototype.KeyScopePosting).Return("trx9", nil).
		Do(func(ctx interface{}, ops []prototype.Operation, scope prototype.KeyScope) {
			myassert.Len(ops, 2)
			comment := ops[0].Body.(*prototype.CommentOperation)
			myassert.Equal("", comment.ParentAuthor)
			myassert.Equal("hive-123", comment.ParentPermlink)
			myassert.True(strings.HasPrefix(comment.Permlink, "my-first-post-"))

			var meta map[string]interface{}
			myassert.NoError(json.Unmarshal([]byte(comment.JsonMetadata), &meta))
			myassert.Equal([]interface{}{"hive-123", "travel", "food"}, meta["tags"])
			myassert.Equal(DefaultAppName, meta["app"])
			myassert.Equal("markdown", meta["format"])

			options := ops[1].Body.(*prototype.CommentOptionsOperation)
			myassert.Equal(comment.Permlink, options.Permlink)
			myassert.Len(options.Extensions, 1)
			myassert.Equal([]prototype.BeneficiaryRoute{
				{Account: "carol", Weight: 1000},
				{Account: "hivebridge", Weight: 500},
			}, options.Extensions[0].Beneficiaries)
		})

	res := pb.PublishPost(context.Background(), &prototype.PostIntent{
		Title:        "My First Post!",
		Body:         "hello world",
		Author:       "alice",
		Tags:         []string{"Travel", "food", "travel"},
		SubCommunity: "hive-123",
		Beneficiaries: []prototype.BeneficiaryRoute{
			{Account: "hivebridge", Weight: 200},
			{Account: "carol", Weight: 1000},
		},
	})
	require.True(t, res.Success, res.Error)
	assert.Equal(t, "trx9", res.TransactionId)
	assert.Equal(t, "alice", res.Author)
	assert.Equal(t, "https://hive.blog/@alice/"+res.Permlink, res.Url)
}

func TestPublishPost_BeneficiariesOverflow(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	pb, _, _ := newTestPostBroadcaster(ctrl, fullCredits())

	res := pb.PublishPost(context.Background(), &prototype.PostIntent{
		Title: "t", Body: "b", Author: "alice",
		Beneficiaries: []prototype.BeneficiaryRoute{{Account: "carol", Weight: 9900}},
	})
	assert.False(t, res.Success)
	assert.Equal(t, prototype.KindValidation, res.Kind)
}

func TestPublishPost_InsufficientRC(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	pb, _, _ := newTestPostBroadcaster(ctrl, &fakeRCHelper{bar: &utils.Manabar{CurrentMana: 10, MaxMana: 1000, LastUpdate: testNow}})

	res := pb.PublishPost(context.Background(), &prototype.PostIntent{Title: "t", Body: "b", Author: "alice"})
	assert.False(t, res.Success)
	assert.Equal(t, prototype.KindInsufficientRC, res.Kind)
}

func TestPublishComment(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	pb, signer, _ := newTestPostBroadcaster(ctrl, fullCredits())

	signer.EXPECT().Broadcast(gomock.Any(), gomock.Any(), prototype.KeyScopePosting).Return("trx2", nil).
		Do(func(ctx interface{}, ops []prototype.Operation, scope prototype.KeyScope) {
			assert.Len(t, ops, 1)
			comment := ops[0].Body.(*prototype.CommentOperation)
			assert.Equal(t, "alice", comment.ParentAuthor)
			assert.Equal(t, "hello", comment.ParentPermlink)
			assert.True(t, strings.HasPrefix(comment.Permlink, "re-hello-"))
		})

	res := pb.PublishPost(context.Background(), &prototype.PostIntent{
		Body: "nice", Author: "bob", ParentAuthor: "alice", ParentPermlink: "hello",
	})
	assert.True(t, res.Success)
}

func TestUpdatePost_EditWindow(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	pb, signer, reader := newTestPostBroadcaster(ctrl, nil)
	intent := &prototype.UpdateIntent{Author: "alice", Permlink: "hello", Body: "new body",
		Metadata: map[string]interface{}{"edited": true}}

	reader.EXPECT().Call(gomock.Any(), "condenser_api.get_content", []interface{}{"alice", "hello"}).
		Return(existingPost(testNow.Add(-EditWindow-time.Second)), nil)
	res := pb.UpdatePost(context.Background(), intent)
	assert.False(t, res.Success)
	assert.Equal(t, "Post cannot be updated after 7 days", res.Error)

	reader.EXPECT().Call(gomock.Any(), "condenser_api.get_content", gomock.Any()).
		Return(existingPost(testNow.Add(-(6*24+23)*time.Hour)), nil)
	signer.EXPECT().Broadcast(gomock.Any(), gomock.Any(), prototype.KeyScopePosting).Return("trx3", nil).
		Do(func(ctx interface{}, ops []prototype.Operation, scope prototype.KeyScope) {
			comment := ops[0].Body.(*prototype.CommentOperation)
			assert.Equal(t, "photography", comment.ParentPermlink)
			assert.Equal(t, "Hello", comment.Title)
			assert.Equal(t, "new body", comment.Body)
			var meta map[string]interface{}
			assert.NoError(t, json.Unmarshal([]byte(comment.JsonMetadata), &meta))
			assert.Equal(t, []interface{}{"a.png"}, meta["image"])
			assert.Equal(t, []interface{}{"photography"}, meta["tags"])
			assert.Equal(t, true, meta["edited"])
		})
	res = pb.UpdatePost(context.Background(), intent)
	assert.True(t, res.Success)
}

func TestUpdatePost_NotFoundAndReadFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	pb, _, reader := newTestPostBroadcaster(ctrl, nil)
	intent := &prototype.UpdateIntent{Author: "alice", Permlink: "gone", Body: "x"}

	reader.EXPECT().Call(gomock.Any(), "condenser_api.get_content", gomock.Any()).
		Return(json.RawMessage(`{"author":"","permlink":""}`), nil)
	res := pb.UpdatePost(context.Background(), intent)
	assert.False(t, res.Success)
	assert.Equal(t, "Post not found", res.Error)

	reader.EXPECT().Call(gomock.Any(), "condenser_api.get_content", gomock.Any()).
		Return(nil, errors.New("dial tcp: i/o timeout"))
	res = pb.UpdatePost(context.Background(), intent)
	assert.False(t, res.Success)
	assert.Equal(t, prototype.KindReadFailure, res.Kind)
}

func TestDeletePost(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	pb, signer, reader := newTestPostBroadcaster(ctrl, nil)

	reader.EXPECT().Call(gomock.Any(), "condenser_api.get_content", gomock.Any()).
		Return(existingPost(testNow.Add(-time.Hour)), nil)
	signer.EXPECT().Broadcast(gomock.Any(), gomock.Any(), gomock.Any()).Return("trx4", nil).
		Do(func(ctx interface{}, ops []prototype.Operation, scope prototype.KeyScope) {
			comment := ops[0].Body.(*prototype.CommentOperation)
			assert.Equal(t, "", comment.Body)
			assert.Equal(t, "hello", comment.Permlink)
		})
	res := pb.DeletePost(context.Background(), &prototype.DeleteIntent{Author: "alice", Permlink: "hello"})
	assert.True(t, res.Success)

	reader.EXPECT().Call(gomock.Any(), "condenser_api.get_content", gomock.Any()).
		Return(existingPost(testNow.Add(-8*24*time.Hour)), nil)
	res = pb.DeletePost(context.Background(), &prototype.DeleteIntent{Author: "alice", Permlink: "hello"})
	assert.False(t, res.Success)
	assert.Equal(t, prototype.ErrEditWindowClosed.Error(), res.Error)
}
