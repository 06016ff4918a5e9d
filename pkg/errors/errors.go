// Package errors はプロジェクト全体のエラーハンドリングと警告システムを提供します。
// cockroachdb/errors をベースにしており、スタックトレース付きの構造化されたエラー情報を提供します。
package errors

import (
	"fmt"
	"log"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// ===========================================================================
//
//	グローバル警告ハンドリング
//
// ===========================================================================
var (
	warningMutex   sync.Mutex
	warningHandler = func(w error) {
		log.Printf("loanboost-Warning: %v\n", w)
	}
	// zerologロガー（循環importを避けるため遅延初期化）
	zerologWarnFunc func(warning error)
)

// SetWarningHandler は警告ハンドラを設定します。
//
// 例:
//
//	errors.SetWarningHandler(func(w error) {
//	    // 警告を無視する
//	})
func SetWarningHandler(handler func(w error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	warningHandler = handler
}

// SetZerologWarnFunc はzerolog警告関数を設定します（循環importを避けるため）。
func SetZerologWarnFunc(warnFunc func(warning error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	zerologWarnFunc = warnFunc
}

// Warn は警告を発生させます。
// zerologが設定されている場合は構造化ログとして出力し、そうでなければ従来のハンドラを使用します。
func Warn(w error) {
	warningMutex.Lock()
	defer warningMutex.Unlock()

	if zerologWarnFunc != nil {
		zerologWarnFunc(w)
		return
	}
	if warningHandler != nil {
		warningHandler(w)
	}
}

// DataConversionWarning は値が変換できずに行が破棄された場合などに発生する警告です。
type DataConversionWarning struct {
	Column   string
	FromType string
	ToType   string
	Count    int
	Reason   string
}

func (w *DataConversionWarning) Error() string {
	return fmt.Sprintf("column %s: %d value(s) could not be converted from %s to %s. Reason: %s",
		w.Column, w.Count, w.FromType, w.ToType, w.Reason)
}

// MarshalZerologObject はzerologのイベントに構造化された警告情報を追加します。
func (w *DataConversionWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Str("column", w.Column).
		Str("from_type", w.FromType).
		Str("to_type", w.ToType).
		Int("count", w.Count).
		Str("reason", w.Reason).
		Str("type", "DataConversionWarning")
}

// NewDataConversionWarning は新しいDataConversionWarningを作成します。
func NewDataConversionWarning(column, from, to string, count int, reason string) *DataConversionWarning {
	return &DataConversionWarning{Column: column, FromType: from, ToType: to, Count: count, Reason: reason}
}

// ===========================================================================
//
//	構造化されたエラー型
//
// ===========================================================================

// MissingColumnError は必要な列が入力テーブルに存在しない場合のエラーです。
type MissingColumnError struct {
	Op     string
	Column string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("loanboost: %s: column %q not found", e.Op, e.Column)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *MissingColumnError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Str("column", e.Column).
		Str("type", "MissingColumnError")
}

// NewMissingColumnError は新しいMissingColumnErrorを作成し、スタックトレースを付与します。
func NewMissingColumnError(op, column string) error {
	return errors.WithStack(&MissingColumnError{Op: op, Column: column})
}

// ParseError はセルの値を期待する型に変換できなかった場合のエラーです。
// Row はヘッダーを除いた0始まりのデータ行番号です。
type ParseError struct {
	Op     string
	Row    int
	Column string
	Value  string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("loanboost: %s: row %d, column %q: cannot parse %q: %v", e.Op, e.Row, e.Column, e.Value, e.Err)
	}
	return fmt.Sprintf("loanboost: %s: row %d, column %q: cannot parse %q", e.Op, e.Row, e.Column, e.Value)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *ParseError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Int("row", e.Row).
		Str("column", e.Column).
		Str("value", e.Value).
		Str("type", "ParseError")
}

// NewParseError は新しいParseErrorを作成し、スタックトレースを付与します。
func NewParseError(op string, row int, column, value string, err error) error {
	return errors.WithStack(&ParseError{Op: op, Row: row, Column: column, Value: value, Err: err})
}

// ValidationError は入力パラメータの検証に失敗した場合のエラーです。
type ValidationError struct {
	ParamName string
	Reason    string
	Value     interface{}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("loanboost: validation failed for parameter '%s': %s (got: %v)", e.ParamName, e.Reason, e.Value)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *ValidationError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("param_name", e.ParamName).
		Str("reason", e.Reason).
		Interface("value", e.Value).
		Str("type", "ValidationError")
}

// NewValidationError は新しいValidationErrorを作成し、スタックトレースを付与します。
func NewValidationError(param, reason string, value interface{}) error {
	return errors.WithStack(&ValidationError{ParamName: param, Reason: reason, Value: value})
}

// RemoteError はSageMakerなどのリモートサービス呼び出しが失敗した、
// またはジョブが正常でない状態で終了した場合のエラーです。
// Err にはSDKのエラーがそのまま保持されるため、errors.As で API エラーを取り出せます。
type RemoteError struct {
	Op       string
	Resource string
	Status   string
	Reason   string
	Err      error
}

func (e *RemoteError) Error() string {
	msg := fmt.Sprintf("loanboost: %s %s", e.Op, e.Resource)
	if e.Status != "" {
		msg += fmt.Sprintf(": status %s", e.Status)
	}
	if e.Reason != "" {
		msg += fmt.Sprintf(": %s", e.Reason)
	}
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	return msg
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *RemoteError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Str("resource", e.Resource).
		Str("status", e.Status).
		Str("reason", e.Reason).
		Str("type", "RemoteError")
}

// NewRemoteError はSDK呼び出しの失敗をラップしたRemoteErrorを作成します。
func NewRemoteError(op, resource string, err error) error {
	return errors.WithStack(&RemoteError{Op: op, Resource: resource, Err: err})
}

// NewRemoteStatusError はジョブやエンドポイントが想定外の状態で終了した場合のRemoteErrorを作成します。
func NewRemoteStatusError(op, resource, status, reason string) error {
	return errors.WithStack(&RemoteError{Op: op, Resource: resource, Status: status, Reason: reason})
}

// ===========================================================================
//
//	cockroachdb/errors ラッパー関数
//
// ===========================================================================

// Is はエラーが特定のターゲットエラーかどうかを判定します。
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As はエラーが特定の型にキャスト可能かどうかを判定します。
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap は既存のエラーをメッセージ付きでラップします。
func Wrap(err error, message string) error {
	return errors.Wrap(err, message)
}

// Wrapf は既存のエラーをフォーマット文字列でラップします。
func Wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}

// New は新しいエラーを作成します。
func New(message string) error {
	return errors.New(message)
}

// Newf は新しいフォーマット済みエラーを作成します。
func Newf(format string, args ...interface{}) error {
	return errors.Newf(format, args...)
}

// WithStack はエラーにスタックトレースを付与します。
func WithStack(err error) error {
	return errors.WithStack(err)
}

// ===========================================================================
//
//	共通エラー変数
//
// ===========================================================================

var (
	// ErrEmptyData は空のデータが渡された場合のエラーです。
	ErrEmptyData = New("empty data")
)
