//go:build !unix

package printer

const nonBlockFlag = 0
