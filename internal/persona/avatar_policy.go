package persona

import "github.com/angelmondragon/personacast-backend/pkg/db/models"

// AvatarPolicy picks the avatar used for a generation out of the user's avatars.
type AvatarPolicy func(avatars []models.Avatar) *models.Avatar

// LatestAvatar selects the most recently created avatar. Ties keep the earlier slice entry.
func LatestAvatar(avatars []models.Avatar) *models.Avatar {
	var picked *models.Avatar
	for i := range avatars {
		if picked == nil || avatars[i].CreatedAt.After(picked.CreatedAt) {
			picked = &avatars[i]
		}
	}
	return picked
}
