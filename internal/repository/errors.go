package repository

import "errors"

var (
	ErrNotFound = errors.New("not found")

	//条件付き更新でバージョンが合わなかった、ユニーク制約違反など
	ErrConflict = errors.New("conflict")
)
