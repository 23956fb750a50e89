// Licensed to the LF AI & Data foundation under one
// or more contributor license agreements. See the NOTICE file
// distributed with this work for additional information
// regarding copyright ownership. The ASF licenses this file
// to you under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License. You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package merr

import (
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/suite"
)

type ErrSuite struct {
	suite.Suite
}

func (s *ErrSuite) TestCode() {
	err := WrapErrSessionNotFound("abc")
	errors.Wrap(err, "failed to set volume")
	s.ErrorIs(err, ErrSessionNotFound)
	s.Equal(Code(ErrSessionNotFound), Code(err))
	s.Equal(TimeoutCode, Code(context.DeadlineExceeded))
	s.Equal(CanceledCode, Code(context.Canceled))
	s.Equal(errUnexpected.errCode, Code(errUnexpected))
	s.Equal(int32(0), Code(nil))

	sameCodeErr := newMixError("new error", ErrSessionNotFound.errCode, false)
	s.True(sameCodeErr.Is(ErrSessionNotFound))
}

func (s *ErrSuite) TestWrap() {
	// Service 相关错误。
	s.ErrorIs(WrapErrServiceNotReady("audiosession"), ErrServiceNotReady)
	s.ErrorIs(WrapErrServiceUnavailable("com init failed", "init"), ErrServiceUnavailable)
	s.ErrorIs(WrapErrServiceInternal("never throw out"), ErrServiceInternal)
	s.ErrorIs(WrapErrServiceClosed("audiosession"), ErrServiceClosed)

	// Session 相关错误。
	s.ErrorIs(WrapErrSessionNotFound("s-1", "set volume"), ErrSessionNotFound)
	s.ErrorIs(WrapErrSessionNoLiveMatch(4242, "set mute"), ErrSessionNoLiveMatch)
	s.ErrorIs(WrapErrSessionVolumeUnavailable("s-1", errors.New("E_NOINTERFACE")), ErrSessionVolumeUnavailable)

	// Device 相关错误。
	s.ErrorIs(WrapErrDeviceNotFound(errors.New("E_NOTFOUND")), ErrDeviceNotFound)
	s.ErrorIs(WrapErrDeviceUnavailable("dev", nil), ErrDeviceUnavailable)
	s.ErrorIs(WrapErrEnumeratorUnavailable(errors.New("CoCreateInstance")), ErrEnumeratorUnavailable)
	s.ErrorIs(WrapErrEndpointUnavailable(errors.New("activate"), "get volume"), ErrEndpointUnavailable)
	s.ErrorIs(WrapErrSessionManagerActivate("dev", errors.New("activate")), ErrSessionManagerActivate)

	// Parameter 相关错误。
	s.ErrorIs(WrapErrParameterInvalid("auto|wca|pulse|fake", "alsa"), ErrParameterInvalid)
	s.ErrorIs(WrapErrParameterInvalidRange(0, 1, 2, "volume"), ErrParameterInvalid)
	s.ErrorIs(WrapErrOperationNotSupported("endpoint"), ErrOperationNotSupported)

	s.NotErrorIs(WrapErrSessionNotFound("s-1"), ErrSessionNoLiveMatch)
}

func (s *ErrSuite) TestMessage() {
	s.Equal("session not found[session=s-1]", WrapErrSessionNotFound("s-1").Error())
	s.Equal("no sessions found for process[pid=4242]", WrapErrSessionNoLiveMatch(4242).Error())
	s.Equal("failed to create device enumerator: boom", WrapErrEnumeratorUnavailable(errors.New("boom")).Error())
	s.Contains(WrapErrServiceNotReady("audiosession").Error(), "service not initialized")

	// 封装后的错误 Detail 与 Error 保持一致，叶子错误的 Detail 不受影响
	wrapped := WrapErrSessionVolumeUnavailable("s-1", errors.New("E_NOINTERFACE")).(mixError)
	s.Equal(wrapped.Error(), wrapped.Detail())
	s.Equal("session volume unavailable", ErrSessionVolumeUnavailable.Detail())
}

func (s *ErrSuite) TestRetryable() {
	s.True(IsRetryableErr(ErrSessionNoLiveMatch))
	s.True(IsRetryableErr(WrapErrDeviceNotFound(nil)))
	s.False(IsRetryableErr(WrapErrSessionNotFound("s")))
	s.False(IsRetryableErr(errors.New("plain")))
}

func (s *ErrSuite) TestErrorType() {
	err := WrapErrAsInputError(ErrParameterInvalid)
	s.Equal(InputError, GetErrorType(err))
	s.Equal(SystemError, GetErrorType(ErrServiceInternal))
	s.Equal(SystemError, GetErrorType(errors.New("plain")))
	s.Equal("input_error", InputError.String())
}

func (s *ErrSuite) TestCombineErrors() {
	errFirst := errors.New("first")
	errSecond := errors.New("second")
	errThird := errors.New("third")

	err := Combine(errFirst, errSecond)
	s.True(errors.Is(err, errFirst))
	s.True(errors.Is(err, errSecond))
	s.False(errors.Is(err, errThird))

	err = Combine(errFirst, nil, errSecond, errThird)
	s.True(errors.Is(err, errThird))

	s.NoError(Combine(nil, nil))
	s.True(IsCanceledOrTimeout(Combine(errFirst, context.Canceled)))
}

func TestErrors(t *testing.T) {
	suite.Run(t, new(ErrSuite))
}
