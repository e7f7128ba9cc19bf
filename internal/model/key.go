package model

import "strconv"

// ObjectKey derives the storage key for a file from its owner and generated id.
func ObjectKey(ideaID, fileID int64) string {
	return strconv.FormatInt(ideaID, 10) + "/" + strconv.FormatInt(fileID, 10)
}
