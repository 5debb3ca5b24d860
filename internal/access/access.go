// Package access decides what a requester may do with a file record.
// Ownership is single-owner; the only other axis is public/private.
package access

import (
	"github.com/templui/filesmanager/internal/model"
)

// CanRead reports whether requester may read the record's content.
// A nil requester is anonymous.
func CanRead(file *model.File, requester *model.OwnerID) bool {
	if file == nil {
		return false
	}
	if file.IsPublic {
		return true
	}
	return IsOwner(file, requester)
}

// CanManage reports whether requester may view metadata or change visibility.
func CanManage(file *model.File, requester *model.OwnerID) bool {
	return IsOwner(file, requester)
}

func IsOwner(file *model.File, requester *model.OwnerID) bool {
	if file == nil || requester == nil || *requester == "" {
		return false
	}
	return file.OwnerID == *requester
}
