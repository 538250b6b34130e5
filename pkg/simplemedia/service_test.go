package simplemedia_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-media/pkg/simplemedia"
	"github.com/tendant/simple-media/pkg/simplemedia/repo/memory"
	memorystorage "github.com/tendant/simple-media/pkg/simplemedia/storage/memory"
)

func TestServiceCreation(t *testing.T) {
	tests := []struct {
		name        string
		options     []simplemedia.Option
		expectError bool
	}{
		{
			name:        "no options should fail",
			options:     []simplemedia.Option{},
			expectError: true,
		},
		{
			name: "with repository should succeed",
			options: []simplemedia.Option{
				simplemedia.WithRepository(memory.New()),
			},
			expectError: false,
		},
		{
			name: "with repository and blob store should succeed",
			options: []simplemedia.Option{
				simplemedia.WithRepository(memory.New()),
				simplemedia.WithBlobStore("memory", memorystorage.New()),
			},
			expectError: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := simplemedia.New(tt.options...)

			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, svc)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, svc)
			}
		})
	}
}

func setupTestService(t *testing.T) simplemedia.Service {
	repo := memory.New()
	store := memorystorage.New()

	svc, err := simplemedia.New(
		simplemedia.WithRepository(repo),
		simplemedia.WithBlobStore("memory", store),
		simplemedia.WithEventSink(simplemedia.NewNoopEventSink()),
	)
	require.NoError(t, err)
	require.NotNil(t, svc)

	return svc
}

func createTestMedia(t *testing.T, svc simplemedia.Service, name, mimeType string) *simplemedia.Media {
	t.Helper()

	media, err := svc.CreateMedia(context.Background(), simplemedia.CreateMediaRequest{
		Name:     name,
		FileName: name + ".bin",
		Disk:     "memory",
		MimeType: mimeType,
		Size:     int64(len(name)),
	})
	require.NoError(t, err)
	return media
}

func TestMediaOperations(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()

	t.Run("CreateMedia", func(t *testing.T) {
		createdBy := uuid.New()
		req := simplemedia.CreateMediaRequest{
			Name:      "passport scan",
			FileName:  "passport.jpg",
			Disk:      "memory",
			MimeType:  "image/jpeg",
			Size:      2048,
			CreatedBy: &createdBy,
			Hash:      "abc123",
		}

		media, err := svc.CreateMedia(ctx, req)
		assert.NoError(t, err)
		assert.NotNil(t, media)
		assert.NotEmpty(t, media.ID)
		assert.Equal(t, req.Name, media.Name)
		assert.Equal(t, req.FileName, media.FileName)
		assert.Equal(t, req.MimeType, media.MimeType)
		assert.Equal(t, req.Size, media.Size)
		assert.Equal(t, req.Hash, media.Hash)
		require.NotNil(t, media.CreatedBy)
		assert.Equal(t, createdBy, *media.CreatedBy)
		assert.False(t, media.CreatedAt.IsZero())
		assert.False(t, media.UpdatedAt.IsZero())
		assert.Nil(t, media.DeletedAt)
		assert.Nil(t, media.RecordLeft)
	})

	t.Run("CreateMediaNegativeSize", func(t *testing.T) {
		_, err := svc.CreateMedia(ctx, simplemedia.CreateMediaRequest{
			Name: "bad", Disk: "memory", Size: -1,
		})
		assert.Error(t, err)
		assert.True(t, errors.Is(err, simplemedia.ErrNegativeSize))
	})

	t.Run("CreateMediaZeroSize", func(t *testing.T) {
		media, err := svc.CreateMedia(ctx, simplemedia.CreateMediaRequest{
			Name: "empty", Disk: "memory", Size: 0,
		})
		assert.NoError(t, err)
		assert.Equal(t, int64(0), media.Size)
	})

	t.Run("CreateMediaUnknownParent", func(t *testing.T) {
		missing := "01ARZ3NDEKTSV4RRFFQ69G5FAV"
		_, err := svc.CreateMedia(ctx, simplemedia.CreateMediaRequest{
			Name: "orphan", Disk: "memory", ParentID: &missing,
		})
		assert.Error(t, err)
		assert.True(t, errors.Is(err, simplemedia.ErrParentNotFound))
	})

	t.Run("GetMedia", func(t *testing.T) {
		created := createTestMedia(t, svc, "get-me", "text/plain")

		retrieved, err := svc.GetMedia(ctx, created.ID)
		assert.NoError(t, err)
		assert.Equal(t, created.ID, retrieved.ID)
		assert.Equal(t, created.Name, retrieved.Name)
	})

	t.Run("GetMediaNotFound", func(t *testing.T) {
		_, err := svc.GetMedia(ctx, "01ARZ3NDEKTSV4RRFFQ69G5FAV")
		assert.True(t, errors.Is(err, simplemedia.ErrMediaNotFound))
	})

	t.Run("MediaIDsSortByCreation", func(t *testing.T) {
		first := createTestMedia(t, svc, "first", "text/plain")
		time.Sleep(2 * time.Millisecond)
		second := createTestMedia(t, svc, "second", "text/plain")
		assert.Less(t, first.ID, second.ID)
	})
}

func TestSoftDelete(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()

	t.Run("DeleteStampsTombstone", func(t *testing.T) {
		media := createTestMedia(t, svc, "doomed", "image/png")
		deletedBy := uuid.New()

		deleted, err := svc.SoftDelete(ctx, media.ID, &deletedBy)
		assert.NoError(t, err)
		assert.True(t, deleted)

		// The record stays reachable by id with the tombstone set.
		got, err := svc.GetMedia(ctx, media.ID)
		require.NoError(t, err)
		assert.True(t, got.Deleted())
		require.NotNil(t, got.DeletedBy)
		assert.Equal(t, deletedBy, *got.DeletedBy)
	})

	t.Run("DeleteMissingMedia", func(t *testing.T) {
		deleted, err := svc.SoftDelete(ctx, "01ARZ3NDEKTSV4RRFFQ69G5FAV", nil)
		assert.NoError(t, err)
		assert.False(t, deleted)
	})

	t.Run("DeleteIsIdempotent", func(t *testing.T) {
		media := createTestMedia(t, svc, "twice", "image/png")

		deleted, err := svc.SoftDelete(ctx, media.ID, nil)
		require.NoError(t, err)
		require.True(t, deleted)

		first, err := svc.GetMedia(ctx, media.ID)
		require.NoError(t, err)

		time.Sleep(2 * time.Millisecond)
		deleted, err = svc.SoftDelete(ctx, media.ID, nil)
		assert.NoError(t, err)
		assert.True(t, deleted)

		second, err := svc.GetMedia(ctx, media.ID)
		require.NoError(t, err)
		assert.True(t, second.DeletedAt.After(*first.DeletedAt))
	})

	t.Run("AssociationsSurviveDelete", func(t *testing.T) {
		media := createTestMedia(t, svc, "attached-then-deleted", "image/png")
		owner := simplemedia.OwnerRef{Type: simplemedia.OwnerTypeUser, ID: uuid.New()}

		_, err := svc.Attach(ctx, simplemedia.AttachRequest{MediaID: media.ID, Owner: owner})
		require.NoError(t, err)

		_, err = svc.SoftDelete(ctx, media.ID, nil)
		require.NoError(t, err)

		listed, err := svc.GetMediaFor(ctx, owner, nil)
		require.NoError(t, err)
		require.Len(t, listed, 1)
		assert.True(t, listed[0].Deleted())
	})
}

func TestAttachDetach(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()

	t.Run("AttachDefaultsGroup", func(t *testing.T) {
		media := createTestMedia(t, svc, "avatar", "image/png")
		owner := simplemedia.OwnerRef{Type: simplemedia.OwnerTypeUser, ID: uuid.New()}

		mediable, err := svc.Attach(ctx, simplemedia.AttachRequest{MediaID: media.ID, Owner: owner})
		assert.NoError(t, err)
		assert.Equal(t, simplemedia.GroupDefault, mediable.Group)
		assert.Equal(t, media.ID, mediable.MediaID)
		assert.Equal(t, owner, mediable.Owner())
	})

	t.Run("AttachMissingMedia", func(t *testing.T) {
		owner := simplemedia.OwnerRef{Type: simplemedia.OwnerTypeUser, ID: uuid.New()}
		_, err := svc.Attach(ctx, simplemedia.AttachRequest{
			MediaID: "01ARZ3NDEKTSV4RRFFQ69G5FAV", Owner: owner,
		})
		assert.True(t, errors.Is(err, simplemedia.ErrMediaNotFound))
	})

	t.Run("AttachInvalidOwnerType", func(t *testing.T) {
		media := createTestMedia(t, svc, "typed", "image/png")
		_, err := svc.Attach(ctx, simplemedia.AttachRequest{
			MediaID: media.ID,
			Owner:   simplemedia.OwnerRef{Type: "Spaceship", ID: uuid.New()},
		})
		assert.True(t, errors.Is(err, simplemedia.ErrInvalidOwnerType))
	})

	t.Run("ExactDuplicateRejected", func(t *testing.T) {
		media := createTestMedia(t, svc, "dup", "image/png")
		owner := simplemedia.OwnerRef{Type: simplemedia.OwnerTypeUser, ID: uuid.New()}
		req := simplemedia.AttachRequest{MediaID: media.ID, Owner: owner, Group: "gallery"}

		_, err := svc.Attach(ctx, req)
		require.NoError(t, err)

		_, err = svc.Attach(ctx, req)
		assert.True(t, errors.Is(err, simplemedia.ErrAlreadyAttached))
	})

	t.Run("SameMediaDifferentGroups", func(t *testing.T) {
		media := createTestMedia(t, svc, "multi-group", "image/png")
		owner := simplemedia.OwnerRef{Type: simplemedia.OwnerTypePeople, ID: uuid.New()}

		_, err := svc.Attach(ctx, simplemedia.AttachRequest{MediaID: media.ID, Owner: owner, Group: "front"})
		require.NoError(t, err)
		_, err = svc.Attach(ctx, simplemedia.AttachRequest{MediaID: media.ID, Owner: owner, Group: "back"})
		assert.NoError(t, err)

		rels, err := svc.GetRelationshipsFor(ctx, media.ID)
		require.NoError(t, err)
		assert.Len(t, rels, 2)
	})

	t.Run("DetachSpecificGroup", func(t *testing.T) {
		media := createTestMedia(t, svc, "two-groups", "image/png")
		owner := simplemedia.OwnerRef{Type: simplemedia.OwnerTypeUser, ID: uuid.New()}

		for _, group := range []string{"front", "back"} {
			_, err := svc.Attach(ctx, simplemedia.AttachRequest{MediaID: media.ID, Owner: owner, Group: group})
			require.NoError(t, err)
		}

		back := "back"
		detached, err := svc.Detach(ctx, simplemedia.DetachRequest{MediaID: media.ID, Owner: owner, Group: &back})
		assert.NoError(t, err)
		assert.True(t, detached)

		rels, err := svc.GetRelationshipsFor(ctx, media.ID)
		require.NoError(t, err)
		require.Len(t, rels, 1)
		assert.Equal(t, "front", rels[0].Group)
	})

	t.Run("DetachWithoutGroupRemovesOldest", func(t *testing.T) {
		media := createTestMedia(t, svc, "ordered", "image/png")
		owner := simplemedia.OwnerRef{Type: simplemedia.OwnerTypeUser, ID: uuid.New()}

		for _, group := range []string{"first", "second"} {
			_, err := svc.Attach(ctx, simplemedia.AttachRequest{MediaID: media.ID, Owner: owner, Group: group})
			require.NoError(t, err)
		}

		detached, err := svc.Detach(ctx, simplemedia.DetachRequest{MediaID: media.ID, Owner: owner})
		assert.NoError(t, err)
		assert.True(t, detached)

		rels, err := svc.GetRelationshipsFor(ctx, media.ID)
		require.NoError(t, err)
		require.Len(t, rels, 1)
		assert.Equal(t, "second", rels[0].Group)
	})

	t.Run("DetachAbsentIsNotAnError", func(t *testing.T) {
		media := createTestMedia(t, svc, "never-attached", "image/png")
		owner := simplemedia.OwnerRef{Type: simplemedia.OwnerTypeUser, ID: uuid.New()}

		detached, err := svc.Detach(ctx, simplemedia.DetachRequest{MediaID: media.ID, Owner: owner})
		assert.NoError(t, err)
		assert.False(t, detached)
	})
}

func TestOwnerQueries(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()

	t.Run("GetMediaForFiltersByGroup", func(t *testing.T) {
		owner := simplemedia.OwnerRef{Type: simplemedia.OwnerTypeUser, ID: uuid.New()}
		avatar := createTestMedia(t, svc, "avatar-pic", "image/png")
		doc := createTestMedia(t, svc, "tax-form", "application/pdf")

		_, err := svc.Attach(ctx, simplemedia.AttachRequest{MediaID: avatar.ID, Owner: owner, Group: "avatar"})
		require.NoError(t, err)
		_, err = svc.Attach(ctx, simplemedia.AttachRequest{MediaID: doc.ID, Owner: owner, Group: "documents"})
		require.NoError(t, err)

		all, err := svc.GetMediaFor(ctx, owner, nil)
		require.NoError(t, err)
		assert.Len(t, all, 2)

		group := "avatar"
		avatars, err := svc.GetMediaFor(ctx, owner, &group)
		require.NoError(t, err)
		require.Len(t, avatars, 1)
		assert.Equal(t, avatar.ID, avatars[0].ID)
	})

	t.Run("GetMediaByTypeAndID", func(t *testing.T) {
		ownerID := uuid.New()
		media := createTestMedia(t, svc, "by-type", "image/png")
		_, err := svc.Attach(ctx, simplemedia.AttachRequest{
			MediaID: media.ID,
			Owner:   simplemedia.OwnerRef{Type: simplemedia.OwnerTypePeople, ID: ownerID},
		})
		require.NoError(t, err)

		listed, err := svc.GetMediaByTypeAndID(ctx, simplemedia.OwnerTypePeople, ownerID, nil)
		require.NoError(t, err)
		require.Len(t, listed, 1)
		assert.Equal(t, media.ID, listed[0].ID)
	})

	t.Run("OwnersWithSameIDAreIsolatedByType", func(t *testing.T) {
		sharedID := uuid.New()
		userMedia := createTestMedia(t, svc, "user-file", "image/png")
		peopleMedia := createTestMedia(t, svc, "people-file", "image/png")

		_, err := svc.Attach(ctx, simplemedia.AttachRequest{
			MediaID: userMedia.ID,
			Owner:   simplemedia.OwnerRef{Type: simplemedia.OwnerTypeUser, ID: sharedID},
		})
		require.NoError(t, err)
		_, err = svc.Attach(ctx, simplemedia.AttachRequest{
			MediaID: peopleMedia.ID,
			Owner:   simplemedia.OwnerRef{Type: simplemedia.OwnerTypePeople, ID: sharedID},
		})
		require.NoError(t, err)

		asUser, err := svc.GetMediaFor(ctx, simplemedia.OwnerRef{Type: simplemedia.OwnerTypeUser, ID: sharedID}, nil)
		require.NoError(t, err)
		require.Len(t, asUser, 1)
		assert.Equal(t, userMedia.ID, asUser[0].ID)

		asPeople, err := svc.GetMediaFor(ctx, simplemedia.OwnerRef{Type: simplemedia.OwnerTypePeople, ID: sharedID}, nil)
		require.NoError(t, err)
		require.Len(t, asPeople, 1)
		assert.Equal(t, peopleMedia.ID, asPeople[0].ID)
	})

	t.Run("GetMediaByMimeType", func(t *testing.T) {
		owner := simplemedia.OwnerRef{Type: simplemedia.OwnerTypeIdentityDocument, ID: uuid.New()}
		image := createTestMedia(t, svc, "scan", "image/jpeg")
		pdf := createTestMedia(t, svc, "form", "application/pdf")

		for _, m := range []*simplemedia.Media{image, pdf} {
			_, err := svc.Attach(ctx, simplemedia.AttachRequest{MediaID: m.ID, Owner: owner})
			require.NoError(t, err)
		}

		images, err := svc.GetMediaByMimeType(ctx, owner, "image/jpeg")
		require.NoError(t, err)
		require.Len(t, images, 1)
		assert.Equal(t, image.ID, images[0].ID)

		none, err := svc.GetMediaByMimeType(ctx, owner, "video/mp4")
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("MultiGroupMediaListedOnce", func(t *testing.T) {
		owner := simplemedia.OwnerRef{Type: simplemedia.OwnerTypeUser, ID: uuid.New()}
		media := createTestMedia(t, svc, "deduped", "image/png")

		for _, group := range []string{"a", "b"} {
			_, err := svc.Attach(ctx, simplemedia.AttachRequest{MediaID: media.ID, Owner: owner, Group: group})
			require.NoError(t, err)
		}

		listed, err := svc.GetMediaFor(ctx, owner, nil)
		require.NoError(t, err)
		assert.Len(t, listed, 1)
	})
}

func TestRelationships(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()

	t.Run("GetRelationshipsFor", func(t *testing.T) {
		media := createTestMedia(t, svc, "shared", "image/png")
		userOwner := simplemedia.OwnerRef{Type: simplemedia.OwnerTypeUser, ID: uuid.New()}
		peopleOwner := simplemedia.OwnerRef{Type: simplemedia.OwnerTypePeople, ID: uuid.New()}

		_, err := svc.Attach(ctx, simplemedia.AttachRequest{MediaID: media.ID, Owner: userOwner})
		require.NoError(t, err)
		_, err = svc.Attach(ctx, simplemedia.AttachRequest{MediaID: media.ID, Owner: peopleOwner, Group: "staff"})
		require.NoError(t, err)

		rels, err := svc.GetRelationshipsFor(ctx, media.ID)
		require.NoError(t, err)
		assert.Len(t, rels, 2)
	})

	t.Run("PolymorphicGrouping", func(t *testing.T) {
		media := createTestMedia(t, svc, "grouped", "image/png")

		for i := 0; i < 2; i++ {
			_, err := svc.Attach(ctx, simplemedia.AttachRequest{
				MediaID: media.ID,
				Owner:   simplemedia.OwnerRef{Type: simplemedia.OwnerTypeUser, ID: uuid.New()},
			})
			require.NoError(t, err)
		}
		_, err := svc.Attach(ctx, simplemedia.AttachRequest{
			MediaID: media.ID,
			Owner:   simplemedia.OwnerRef{Type: simplemedia.OwnerTypeIdentityDocument, ID: uuid.New()},
		})
		require.NoError(t, err)

		grouped, err := svc.PolymorphicRelationships(ctx, media.ID)
		require.NoError(t, err)
		assert.Len(t, grouped, 2)
		assert.Len(t, grouped[simplemedia.OwnerTypeUser], 2)
		assert.Len(t, grouped[simplemedia.OwnerTypeIdentityDocument], 1)
	})

	t.Run("RelationshipsForMissingMedia", func(t *testing.T) {
		_, err := svc.GetRelationshipsFor(ctx, "01ARZ3NDEKTSV4RRFFQ69G5FAV")
		assert.True(t, errors.Is(err, simplemedia.ErrMediaNotFound))
	})
}

func TestBackendRegistry(t *testing.T) {
	svc := setupTestService(t)

	t.Run("RegisteredBackend", func(t *testing.T) {
		backend, err := svc.GetBackend("memory")
		assert.NoError(t, err)
		assert.NotNil(t, backend)
	})

	t.Run("UnknownBackend", func(t *testing.T) {
		_, err := svc.GetBackend("tape-drive")
		assert.True(t, errors.Is(err, simplemedia.ErrStorageBackendNotFound))
	})

	t.Run("RegisterBackendAtRuntime", func(t *testing.T) {
		svc.RegisterBackend("scratch", memorystorage.New())
		backend, err := svc.GetBackend("scratch")
		assert.NoError(t, err)
		assert.NotNil(t, backend)
	})
}
