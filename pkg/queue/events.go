package queue

import "github.com/ThreeDotsLabs/watermill/message"

// -------------------------- 基于业务封装 events --------------------------

// PublishShareCreated 发布 sv.share.created 事件。
// 在对象写入存储且元数据落库后调用，通知下游流程（审计、统计等）。
func PublishShareCreated(pub message.Publisher, payload ShareCreatedPayload, opts ...func(*EventHeader)) error {
	msg, err := NewWatermillMessage(TopicShareCreated, payload, opts...)
	if err != nil {
		return err
	}

	return pub.Publish(TopicShareCreated, msg)
}

// PublishShareDeleted 发布 sv.share.deleted 事件。
func PublishShareDeleted(pub message.Publisher, payload ShareDeletedPayload, opts ...func(*EventHeader)) error {
	msg, err := NewWatermillMessage(TopicShareDeleted, payload, opts...)
	if err != nil {
		return err
	}

	return pub.Publish(TopicShareDeleted, msg)
}

// ParseShareCreated 将 Watermill 消息解析为强类型 Envelope（ShareCreatedPayload）。
func ParseShareCreated(msg *message.Message) (Message[ShareCreatedPayload], error) {
	return ParseWatermillMessage[ShareCreatedPayload](msg)
}

// ParseShareDeleted 将 Watermill 消息解析为强类型 Envelope（ShareDeletedPayload）。
func ParseShareDeleted(msg *message.Message) (Message[ShareDeletedPayload], error) {
	return ParseWatermillMessage[ShareDeletedPayload](msg)
}
