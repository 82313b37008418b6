package votes_test

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/emilythestrangee/vitia/backend/internal/models"
	"github.com/emilythestrangee/vitia/backend/internal/testsupport"
	"github.com/emilythestrangee/vitia/backend/internal/votes"
)

func boolPtr(b bool) *bool { return &b }

func TestStateFromLike(t *testing.T) {
	assert.Equal(t, votes.Neutral, votes.StateFromLike(nil))
	assert.Equal(t, votes.Like, votes.StateFromLike(boolPtr(true)))
	assert.Equal(t, votes.Dislike, votes.StateFromLike(boolPtr(false)))
}

type fixture struct {
	db      *gorm.DB
	engine  *votes.Engine
	author  models.User
	voter   models.User
	post    models.Post
	comment models.Comment
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	db := testsupport.OpenDB(t)
	author := testsupport.CreateUser(t, db, "author@vitia.test")
	voter := testsupport.CreateUser(t, db, "voter@vitia.test")
	post := testsupport.CreatePost(t, db, author.ID, "Verdejo en Rueda")
	comment := testsupport.CreateComment(t, db, post.ID, author.ID, nil, "primer comentario")
	return fixture{
		db:      db,
		engine:  votes.NewEngine(db),
		author:  author,
		voter:   voter,
		post:    post,
		comment: comment,
	}
}

func storedLikes(t *testing.T, db *gorm.DB, target votes.Target, id int) int64 {
	t.Helper()
	likes, err := votes.Likes(db, target, id)
	require.NoError(t, err)
	return likes
}

func countLikeRows(t *testing.T, db *gorm.DB, target votes.Target, id int) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Table(target.VoteTable).Where(target.ForeignKey+" = ? AND is_like = ?", id, true).Count(&n).Error)
	return n
}

func countRows(t *testing.T, db *gorm.DB, target votes.Target, userID, id int) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Table(target.VoteTable).Where("user_id = ? AND "+target.ForeignKey+" = ?", userID, id).Count(&n).Error)
	return n
}

func TestLikeTwiceCountsOnce(t *testing.T) {
	for _, target := range []votes.Target{votes.PostTarget, votes.CommentTarget} {
		t.Run(target.Kind, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			id := f.post.ID
			if target == votes.CommentTarget {
				id = f.comment.ID
			}
			before := storedLikes(t, f.db, target, id)

			out, err := f.engine.Set(ctx, target, f.voter.ID, id, votes.Like)
			require.NoError(t, err)
			assert.Equal(t, votes.Created, out.Result)

			out, err = f.engine.Set(ctx, target, f.voter.ID, id, votes.Like)
			require.NoError(t, err)
			assert.Equal(t, votes.Unchanged, out.Result)

			assert.Equal(t, before+1, out.Likes)
			assert.Equal(t, before+1, storedLikes(t, f.db, target, id))
			assert.EqualValues(t, 1, countRows(t, f.db, target, f.voter.ID, id))
		})
	}
}

func TestLikeThenNeutralRestoresCounter(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	before := storedLikes(t, f.db, votes.PostTarget, f.post.ID)

	_, err := f.engine.Set(ctx, votes.PostTarget, f.voter.ID, f.post.ID, votes.Like)
	require.NoError(t, err)

	out, err := f.engine.Set(ctx, votes.PostTarget, f.voter.ID, f.post.ID, votes.Neutral)
	require.NoError(t, err)
	assert.Equal(t, votes.Deleted, out.Result)
	assert.Equal(t, before, out.Likes)
	assert.EqualValues(t, 0, countRows(t, f.db, votes.PostTarget, f.voter.ID, f.post.ID))
}

func TestNeutralWithoutVoteIsUnchanged(t *testing.T) {
	f := newFixture(t)

	out, err := f.engine.Set(context.Background(), votes.CommentTarget, f.voter.ID, f.comment.ID, votes.Neutral)
	require.NoError(t, err)
	assert.Equal(t, votes.Unchanged, out.Result)
	assert.EqualValues(t, 0, out.Likes)
}

func TestSwitchingLikeToDislikeUpdatesRow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.engine.Set(ctx, votes.CommentTarget, f.voter.ID, f.comment.ID, votes.Like)
	require.NoError(t, err)

	out, err := f.engine.Set(ctx, votes.CommentTarget, f.voter.ID, f.comment.ID, votes.Dislike)
	require.NoError(t, err)
	assert.Equal(t, votes.Updated, out.Result)
	assert.EqualValues(t, 0, out.Likes)

	var vote models.CommentVote
	require.NoError(t, f.db.Where("user_id = ? AND comment_id = ?", f.voter.ID, f.comment.ID).First(&vote).Error)
	assert.False(t, vote.IsLike)

	out, err = f.engine.Set(ctx, votes.CommentTarget, f.voter.ID, f.comment.ID, votes.Dislike)
	require.NoError(t, err)
	assert.Equal(t, votes.Unchanged, out.Result)
}

func TestUnchangedDoesNotRecount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.engine.Set(ctx, votes.PostTarget, f.voter.ID, f.post.ID, votes.Like)
	require.NoError(t, err)

	// Corrupt the counter; an unchanged vote must leave it alone.
	require.NoError(t, f.db.Model(&models.Post{}).Where("id = ?", f.post.ID).UpdateColumn("likes", 99).Error)

	out, err := f.engine.Set(ctx, votes.PostTarget, f.voter.ID, f.post.ID, votes.Like)
	require.NoError(t, err)
	assert.Equal(t, votes.Unchanged, out.Result)
	assert.EqualValues(t, 99, out.Likes)

	// The next real change heals it from the vote rows.
	out, err = f.engine.Set(ctx, votes.PostTarget, f.author.ID, f.post.ID, votes.Dislike)
	require.NoError(t, err)
	assert.Equal(t, votes.Created, out.Result)
	assert.EqualValues(t, 1, out.Likes)
}

func TestCounterMatchesRowsAfterRandomSequence(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	voters := []models.User{f.author, f.voter}
	for i := 0; i < 4; i++ {
		voters = append(voters, testsupport.CreateUser(t, f.db, "extra"+string(rune('a'+i))+"@vitia.test"))
	}

	rng := rand.New(rand.NewSource(7))
	states := []votes.State{votes.Neutral, votes.Like, votes.Dislike}
	for i := 0; i < 200; i++ {
		u := voters[rng.Intn(len(voters))]
		s := states[rng.Intn(len(states))]
		out, err := f.engine.Set(ctx, votes.PostTarget, u.ID, f.post.ID, s)
		require.NoError(t, err)

		rows := countLikeRows(t, f.db, votes.PostTarget, f.post.ID)
		assert.Equal(t, rows, out.Likes, "step %d", i)
		assert.Equal(t, rows, storedLikes(t, f.db, votes.PostTarget, f.post.ID), "step %d", i)
		assert.LessOrEqual(t, countRows(t, f.db, votes.PostTarget, u.ID, f.post.ID), int64(1))
	}
}

func TestClearVoterRecountsAffectedTargets(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	other := testsupport.CreatePost(t, f.db, f.author.ID, "Mencía en Bierzo")

	for _, id := range []int{f.post.ID, other.ID} {
		_, err := f.engine.Set(ctx, votes.PostTarget, f.voter.ID, id, votes.Like)
		require.NoError(t, err)
		_, err = f.engine.Set(ctx, votes.PostTarget, f.author.ID, id, votes.Like)
		require.NoError(t, err)
	}

	require.NoError(t, votes.ClearVoter(f.db, votes.PostTarget, f.voter.ID))

	assert.EqualValues(t, 1, storedLikes(t, f.db, votes.PostTarget, f.post.ID))
	assert.EqualValues(t, 1, storedLikes(t, f.db, votes.PostTarget, other.ID))
	assert.EqualValues(t, 0, countRows(t, f.db, votes.PostTarget, f.voter.ID, f.post.ID))
}

func TestDeleteForTargets(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.Set(context.Background(), votes.CommentTarget, f.voter.ID, f.comment.ID, votes.Like)
	require.NoError(t, err)

	require.NoError(t, votes.DeleteForTargets(f.db, votes.CommentTarget, []int{f.comment.ID}))
	require.NoError(t, votes.DeleteForTargets(f.db, votes.CommentTarget, nil))
	assert.EqualValues(t, 0, countRows(t, f.db, votes.CommentTarget, f.voter.ID, f.comment.ID))
}
